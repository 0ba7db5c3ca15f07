package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/planner"
	pkgerrors "ai-advisor/backend/pkg/errors"
	"ai-advisor/backend/pkg/solver"
)

// SolverClient 外部求解服务
type SolverClient interface {
	Solve(ctx context.Context, req *solver.Request) (*solver.Result, error)
}

// Locker 分布式互斥锁（Redis 实现）
type Locker interface {
	AcquireLock(ctx context.Context, name string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, name, token string) error
}

// SolveService 求解业务接口
//
// 求解始终读取调用者最近一次持久化的偏好，而不是请求体。
// 同一用户同一时刻只允许一个求解请求（跨会话），Redis 不可用时退化为不加锁。
type SolveService interface {
	Solve(ctx context.Context, userID string) (*dto.SolveResponse, error)
}

type solveService struct {
	prefs   PreferenceService
	client  SolverClient
	locker  Locker
	lockTTL time.Duration
	logger  *zap.Logger
}

// NewSolveService 创建 SolveService 实例，locker 可为 nil
func NewSolveService(prefs PreferenceService, client SolverClient, locker Locker, lockTTL time.Duration, logger *zap.Logger) SolveService {
	if lockTTL <= 0 {
		lockTTL = time.Minute
	}
	return &solveService{prefs: prefs, client: client, locker: locker, lockTTL: lockTTL, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// Solve: 读取偏好 → 加锁 → 调用求解服务
// ═══════════════════════════════════════════════════════════

func (s *solveService) Solve(ctx context.Context, userID string) (*dto.SolveResponse, error) {
	// 1. 读取持久化偏好（匿名用户使用默认值）
	pref, err := s.prefs.Effective(ctx, userID)
	if err != nil {
		return nil, err
	}

	// 2. 同一用户互斥
	if s.locker != nil && userID != "" {
		lockName := "solve:" + userID
		token, err := s.locker.AcquireLock(ctx, lockName, s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("获取求解锁失败，降级为不加锁", zap.String("user_id", userID), zap.Error(err))
		case token == "":
			return nil, pkgerrors.ErrLockHeld
		default:
			defer func() {
				// 请求 ctx 可能已取消，释放锁使用独立 ctx
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := s.locker.ReleaseLock(releaseCtx, lockName, token); err != nil {
					s.logger.Warn("释放求解锁失败", zap.String("user_id", userID), zap.Error(err))
				}
			}()
		}
	}

	// 3. 调用求解服务
	start := time.Now()
	result, err := s.client.Solve(ctx, toSolverRequest(pref))
	if err != nil {
		s.logger.Error("调用求解服务失败", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", pkgerrors.ErrUpstreamUnavailable, err)
	}

	s.logger.Info("求解完成",
		zap.String("user_id", userID),
		zap.String("status", result.Status),
		zap.Int("rows", len(result.ScheduledCourses)),
		zap.Duration("latency", time.Since(start)),
	)

	return toSolveResponse(result), nil
}

// ── 辅助函数 ──

func toSolverRequest(p planner.Preference) *solver.Request {
	periods := make(map[string][]int, len(planner.Weekdays))
	for day, list := range p.Blacklist.Clone() {
		periods[day] = list
	}
	return &solver.Request{
		X:                  p.MajorCount,
		Y:                  p.MinorCount,
		Z:                  p.ElectiveCount,
		MinCredits:         p.MinCredits,
		MaxCredits:         p.MaxCredits,
		BlacklistedPeriods: periods,
	}
}

func toSolveResponse(r *solver.Result) *dto.SolveResponse {
	rows := make([]planner.SlotRecord, 0, len(r.ScheduledCourses))
	for _, row := range r.ScheduledCourses {
		rows = append(rows, planner.SlotRecord{
			CourseID:   row.CourseID,
			CourseName: row.CourseName,
			Credits:    row.Credits,
			CourseType: row.CourseType,
			Day:        row.Day,
			Period:     row.Period,
		})
	}
	resp := &dto.SolveResponse{
		Status:           r.Status,
		ScheduledCourses: rows,
		TotalCredits:     r.TotalCredits,
	}
	if !r.Succeeded() {
		resp.ErrorMessage = r.ErrorMessage
	}
	return resp
}
