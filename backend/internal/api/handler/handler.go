package handler

import "ai-advisor/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Preference *PreferenceHandler
	Solve      *SolveHandler
	Plan       *PlanHandler
	Export     *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Preference: NewPreferenceHandler(svc.Preference, svc.Import),
		Solve:      NewSolveHandler(svc.Solve),
		Plan:       NewPlanHandler(svc.Plan),
		Export:     NewExportHandler(svc.Export),
	}
}
