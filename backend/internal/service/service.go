package service

import (
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/repository"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Preference PreferenceService
	Solve      SolveService
	Plan       PlanService
	Export     ExportService
	Import     ImportService
}

// NewService 创建 Service 聚合
// locker 为 nil 时求解不做跨会话互斥
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	solverClient SolverClient,
	locker Locker,
	logger *zap.Logger,
) *Service {
	prefs := NewPreferenceService(repo, logger)
	return &Service{
		Preference: prefs,
		Solve:      NewSolveService(prefs, solverClient, locker, cfg.Solver.LockTTL, logger),
		Plan:       NewPlanService(repo, logger),
		Export:     NewExportService(repo, &cfg.Planner, logger),
		Import:     NewImportService(&cfg.Planner, logger),
	}
}
