package dto

import "ai-advisor/backend/internal/planner"

// ── 课表方案模块 DTO ──

// CreatePlanRequest 保存课表方案请求
type CreatePlanRequest struct {
	Name         string                       `json:"name"          binding:"required,min=1,max=100"`
	Description  string                       `json:"description"   binding:"max=500"`
	Courses      []planner.ConsolidatedCourse `json:"courses"       binding:"required,min=1"`
	TotalCredits *float64                     `json:"total_credits" binding:"omitempty,min=0"` // 为空时按课程学分求和
	Activate     bool                         `json:"activate"`
}

// PlanResponse 课表方案响应
type PlanResponse struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	Description  string                       `json:"description"`
	IsActive     bool                         `json:"is_active"`
	TotalCredits float64                      `json:"total_credits"`
	CourseCount  int                          `json:"course_count"`
	Courses      []planner.ConsolidatedCourse `json:"courses"`
	CreatedAt    string                       `json:"created_at"`
	UpdatedAt    string                       `json:"updated_at"`
}
