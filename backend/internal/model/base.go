package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ai-advisor/backend/internal/planner"
)

// ── JSONB 类型 ──
// 写入前调用方需保证切片非 nil，否则列中存入 JSON null 而不是 []

// SlotArray 对应 JSONB [{"day":"M","period":3}, ...]
type SlotArray = datatypes.JSONSlice[planner.Slot]

// CourseList 对应 JSONB 的合并后课程列表
type CourseList = datatypes.JSONSlice[planner.ConsolidatedCourse]

// BaseModel 通用时间戳字段
type BaseModel struct {
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// SoftDeleteModel 支持软删除的时间戳字段
type SoftDeleteModel struct {
	BaseModel
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
