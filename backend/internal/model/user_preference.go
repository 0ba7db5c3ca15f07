package model

import "ai-advisor/backend/internal/planner"

// UserPreference 用户排课偏好，对应 user_preferences，每个用户一行
type UserPreference struct {
	PreferenceID  string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"preference_id"`
	UserID        string    `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	MajorCount    int       `gorm:"not null;default:2"                             json:"major_count"`
	MinorCount    int       `gorm:"not null;default:1"                             json:"minor_count"`
	ElectiveCount int       `gorm:"not null;default:1"                             json:"elective_count"`
	MinCredits    int       `gorm:"not null;default:12"                            json:"min_credits"`
	MaxCredits    int       `gorm:"not null;default:16"                            json:"max_credits"`
	Blacklist     SlotArray `gorm:"type:jsonb;not null;default:'[]'"               json:"blacklist"`
	BaseModel
}

// TableName 指定表名
func (UserPreference) TableName() string { return "user_preferences" }

// ToPlanner 转换为核心层偏好
func (p *UserPreference) ToPlanner() planner.Preference {
	return planner.Preference{
		MajorCount:    p.MajorCount,
		MinorCount:    p.MinorCount,
		ElectiveCount: p.ElectiveCount,
		MinCredits:    p.MinCredits,
		MaxCredits:    p.MaxCredits,
		Blacklist:     planner.FromSlots(p.Blacklist),
	}
}

// NewUserPreference 由核心层偏好构造持久化记录
func NewUserPreference(userID string, pref planner.Preference) *UserPreference {
	return &UserPreference{
		UserID:        userID,
		MajorCount:    pref.MajorCount,
		MinorCount:    pref.MinorCount,
		ElectiveCount: pref.ElectiveCount,
		MinCredits:    pref.MinCredits,
		MaxCredits:    pref.MaxCredits,
		Blacklist:     SlotArray(planner.ToSlots(pref.Blacklist)),
	}
}
