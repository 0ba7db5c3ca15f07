package dto

import "ai-advisor/backend/internal/planner"

// ── 偏好模块 DTO ──

// UpsertPreferenceRequest 保存偏好请求（整条覆盖）
// 数值范围不在绑定层约束，统一由 planner.Preference.Validate 校验
type UpsertPreferenceRequest struct {
	MajorCount    int            `json:"major_count"`
	MinorCount    int            `json:"minor_count"`
	ElectiveCount int            `json:"elective_count"`
	MinCredits    int            `json:"min_credits"`
	MaxCredits    int            `json:"max_credits"`
	Blacklist     []planner.Slot `json:"blacklist"`
}

// ToPlanner 转换为核心层偏好
func (r *UpsertPreferenceRequest) ToPlanner() planner.Preference {
	return planner.Preference{
		MajorCount:    r.MajorCount,
		MinorCount:    r.MinorCount,
		ElectiveCount: r.ElectiveCount,
		MinCredits:    r.MinCredits,
		MaxCredits:    r.MaxCredits,
		Blacklist:     planner.FromSlots(r.Blacklist),
	}
}

// NewUpsertPreferenceRequest 由核心层偏好构造请求体
func NewUpsertPreferenceRequest(p planner.Preference) *UpsertPreferenceRequest {
	return &UpsertPreferenceRequest{
		MajorCount:    p.MajorCount,
		MinorCount:    p.MinorCount,
		ElectiveCount: p.ElectiveCount,
		MinCredits:    p.MinCredits,
		MaxCredits:    p.MaxCredits,
		Blacklist:     planner.ToSlots(p.Blacklist),
	}
}

// PreferenceResponse 偏好信息响应
type PreferenceResponse struct {
	UserID        string         `json:"user_id"`
	MajorCount    int            `json:"major_count"`
	MinorCount    int            `json:"minor_count"`
	ElectiveCount int            `json:"elective_count"`
	MinCredits    int            `json:"min_credits"`
	MaxCredits    int            `json:"max_credits"`
	Blacklist     []planner.Slot `json:"blacklist"`
	UpdatedAt     string         `json:"updated_at"`
}

// ToPlanner 转换为核心层偏好
func (r *PreferenceResponse) ToPlanner() planner.Preference {
	return planner.Preference{
		MajorCount:    r.MajorCount,
		MinorCount:    r.MinorCount,
		ElectiveCount: r.ElectiveCount,
		MinCredits:    r.MinCredits,
		MaxCredits:    r.MaxCredits,
		Blacklist:     planner.FromSlots(r.Blacklist),
	}
}

// BlacklistImportResponse 从日历导入屏蔽时段的结果
type BlacklistImportResponse struct {
	Slots   []planner.Slot `json:"slots"`
	Events  int            `json:"events"`  // 命中工作日节次的事件数
	Skipped int            `json:"skipped"` // 周末、无时间或不在学期内的事件数
}
