package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"ai-advisor/backend/internal/model"
	"ai-advisor/backend/internal/planner"
	pkgerrors "ai-advisor/backend/pkg/errors"
	"ai-advisor/backend/pkg/solver"
)

func setupTestSolveService(locker Locker) (SolveService, *mockPreferenceRepo, *mockSolverClient) {
	repo, prefRepo, _ := newMockRepository()
	client := &mockSolverClient{result: &solver.Result{Status: "success", ScheduledCourses: []solver.Row{}}}
	prefs := NewPreferenceService(repo, zap.NewNop())
	return NewSolveService(prefs, client, locker, time.Minute, zap.NewNop()), prefRepo, client
}

func TestSolveService_UsesPersistedPreference(t *testing.T) {
	svc, prefRepo, client := setupTestSolveService(nil)

	pref := planner.DefaultPreference()
	pref.MajorCount = 3
	pref.Blacklist["T"] = []int{2, 3}
	prefRepo.prefs["user-1"] = model.NewUserPreference("user-1", pref)

	if _, err := svc.Solve(context.Background(), "user-1"); err != nil {
		t.Fatalf("Solve 应成功: %v", err)
	}
	req := client.lastReq
	if req.X != 3 || req.Y != 1 || req.Z != 1 {
		t.Errorf("求解请求应使用持久化偏好: %+v", req)
	}
	if got := req.BlacklistedPeriods["T"]; len(got) != 2 || got[0] != 2 {
		t.Errorf("黑名单未透传: %v", req.BlacklistedPeriods)
	}
	if len(req.BlacklistedPeriods) != 5 {
		t.Errorf("黑名单应包含五个工作日，实际=%d", len(req.BlacklistedPeriods))
	}
}

func TestSolveService_AnonymousDefaults(t *testing.T) {
	svc, _, client := setupTestSolveService(nil)

	if _, err := svc.Solve(context.Background(), ""); err != nil {
		t.Fatalf("匿名求解应成功: %v", err)
	}
	if client.lastReq.MinCredits != 12 || client.lastReq.MaxCredits != 16 {
		t.Errorf("匿名求解应使用默认偏好: %+v", client.lastReq)
	}
}

func TestSolveService_ConvertsRows(t *testing.T) {
	svc, _, client := setupTestSolveService(nil)
	client.result = &solver.Result{
		Status:       "success",
		TotalCredits: 3,
		ScheduledCourses: []solver.Row{
			{CourseID: "COP3502", CourseName: "Programming Fundamentals 1", Credits: 3, CourseType: "major", Day: "M", Period: 3},
			{CourseID: "COP3502", CourseName: "Programming Fundamentals 1", Credits: 3, CourseType: "major", Day: "W", Period: 3},
		},
	}

	resp, err := svc.Solve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Solve 应成功: %v", err)
	}
	if resp.Status != "success" || len(resp.ScheduledCourses) != 2 || resp.TotalCredits != 3 {
		t.Errorf("响应不符: %+v", resp)
	}
	if resp.ScheduledCourses[1].Day != "W" {
		t.Errorf("行顺序应保持不变: %+v", resp.ScheduledCourses)
	}
}

func TestSolveService_SolverReportedFailure(t *testing.T) {
	svc, _, client := setupTestSolveService(nil)
	client.result = &solver.Result{Status: "infeasible", ErrorMessage: "credit range too narrow", ScheduledCourses: []solver.Row{}}

	resp, err := svc.Solve(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("求解失败不应返回 error: %v", err)
	}
	if resp.Status != "infeasible" || resp.ErrorMessage != "credit range too narrow" {
		t.Errorf("失败信息应原样返回: %+v", resp)
	}
}

func TestSolveService_TransportFailure(t *testing.T) {
	svc, _, client := setupTestSolveService(nil)
	client.result = nil
	client.err = errors.New("connection refused")

	_, err := svc.Solve(context.Background(), "user-1")
	if !errors.Is(err, pkgerrors.ErrUpstreamUnavailable) {
		t.Errorf("期望 ErrUpstreamUnavailable，实际: %v", err)
	}
}

func TestSolveService_LockHeld(t *testing.T) {
	locker := newMockLocker()
	svc, _, client := setupTestSolveService(locker)
	locker.held["solve:user-1"] = "other"

	_, err := svc.Solve(context.Background(), "user-1")
	if !errors.Is(err, pkgerrors.ErrLockHeld) {
		t.Errorf("期望 ErrLockHeld，实际: %v", err)
	}
	if client.calls != 0 {
		t.Error("锁被占用时不应调用求解服务")
	}
}

func TestSolveService_LockReleased(t *testing.T) {
	locker := newMockLocker()
	svc, _, _ := setupTestSolveService(locker)

	for i := 0; i < 2; i++ {
		if _, err := svc.Solve(context.Background(), "user-1"); err != nil {
			t.Fatalf("第 %d 次 Solve 应成功: %v", i+1, err)
		}
	}
	if locker.releases != 2 {
		t.Errorf("期望释放锁 2 次，实际=%d", locker.releases)
	}
	if len(locker.held) != 0 {
		t.Error("求解结束后锁应已释放")
	}
}

func TestSolveService_LockDegrades(t *testing.T) {
	locker := newMockLocker()
	locker.acquireErr = errors.New("redis down")
	svc, _, client := setupTestSolveService(locker)

	if _, err := svc.Solve(context.Background(), "user-1"); err != nil {
		t.Fatalf("Redis 不可用时应降级放行: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("期望调用求解服务 1 次，实际=%d", client.calls)
	}
}

func TestSolveService_AnonymousSkipsLock(t *testing.T) {
	locker := newMockLocker()
	svc, _, _ := setupTestSolveService(locker)

	if _, err := svc.Solve(context.Background(), ""); err != nil {
		t.Fatalf("匿名求解应成功: %v", err)
	}
	if locker.releases != 0 {
		t.Error("匿名求解不应加锁")
	}
}
