package dto

import "ai-advisor/backend/internal/planner"

// ── 求解模块 DTO ──

// SolveResponse 求解结果（扁平结构，每行一个上课时段）
type SolveResponse struct {
	Status           string               `json:"status"`
	ScheduledCourses []planner.SlotRecord `json:"scheduled_courses"`
	TotalCredits     float64              `json:"total_credits"`
	ErrorMessage     string               `json:"error_message,omitempty"`
}

// ToPlanner 转换为核心层求解结果
func (r *SolveResponse) ToPlanner() *planner.SolveResult {
	records := r.ScheduledCourses
	if records == nil {
		records = []planner.SlotRecord{}
	}
	return &planner.SolveResult{
		Status:           r.Status,
		ScheduledCourses: records,
		TotalCredits:     r.TotalCredits,
		ErrorMessage:     r.ErrorMessage,
	}
}
