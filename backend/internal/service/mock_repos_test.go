package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/model"
	"ai-advisor/backend/internal/repository"
	"ai-advisor/backend/pkg/solver"
)

// ── Mock PreferenceRepository ──

type mockPreferenceRepo struct {
	prefs   map[string]*model.UserPreference
	getErr  error
	upserts int
}

func newMockPreferenceRepo() *mockPreferenceRepo {
	return &mockPreferenceRepo{prefs: make(map[string]*model.UserPreference)}
}

func (m *mockPreferenceRepo) GetByUser(_ context.Context, userID string) (*model.UserPreference, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if p, ok := m.prefs[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPreferenceRepo) Upsert(_ context.Context, pref *model.UserPreference) error {
	m.upserts++
	now := time.Now()
	if existing, ok := m.prefs[pref.UserID]; ok {
		pref.PreferenceID = existing.PreferenceID
		pref.CreatedAt = existing.CreatedAt
	} else {
		pref.PreferenceID = "pref-" + pref.UserID
		pref.CreatedAt = now
	}
	pref.UpdatedAt = now
	cp := *pref
	m.prefs[pref.UserID] = &cp
	return nil
}

// ── Mock PlanRepository ──

type mockPlanRepo struct {
	plans     map[string]*model.UserPlan
	seq       int
	createErr error
}

func newMockPlanRepo() *mockPlanRepo {
	return &mockPlanRepo{plans: make(map[string]*model.UserPlan)}
}

func (m *mockPlanRepo) Create(_ context.Context, plan *model.UserPlan) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if plan.PlanID == "" {
		plan.PlanID = uuid.NewString()
	}
	plan.CreatedAt = time.Date(2026, 1, 1, 0, 0, m.seq, 0, time.UTC)
	plan.UpdatedAt = plan.CreatedAt
	m.plans[plan.PlanID] = plan
	return nil
}

// CreateActive 写入失败时不改动已有方案的激活状态
func (m *mockPlanRepo) CreateActive(ctx context.Context, plan *model.UserPlan) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, p := range m.plans {
		if p.UserID == plan.UserID {
			p.IsActive = false
		}
	}
	plan.IsActive = true
	return m.Create(ctx, plan)
}

func (m *mockPlanRepo) GetByID(_ context.Context, id string) (*model.UserPlan, error) {
	if p, ok := m.plans[id]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPlanRepo) ListByUser(_ context.Context, userID string) ([]model.UserPlan, error) {
	var result []model.UserPlan
	for _, p := range m.plans {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (m *mockPlanRepo) SetActive(_ context.Context, userID, planID string) error {
	target, ok := m.plans[planID]
	if !ok || target.UserID != userID {
		return gorm.ErrRecordNotFound
	}
	for _, p := range m.plans {
		if p.UserID == userID {
			p.IsActive = false
		}
	}
	target.IsActive = true
	return nil
}

func (m *mockPlanRepo) Delete(_ context.Context, id string) error {
	delete(m.plans, id)
	return nil
}

// ── Mock SolverClient ──

type mockSolverClient struct {
	mu      sync.Mutex
	result  *solver.Result
	err     error
	lastReq *solver.Request
	calls   int
}

func (m *mockSolverClient) Solve(_ context.Context, req *solver.Request) (*solver.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastReq = req
	return m.result, m.err
}

// ── Mock Locker ──

type mockLocker struct {
	held       map[string]string
	acquireErr error
	releases   int
}

func newMockLocker() *mockLocker {
	return &mockLocker{held: make(map[string]string)}
}

func (m *mockLocker) AcquireLock(_ context.Context, name string, _ time.Duration) (string, error) {
	if m.acquireErr != nil {
		return "", m.acquireErr
	}
	if _, ok := m.held[name]; ok {
		return "", nil
	}
	token := "tok-" + name
	m.held[name] = token
	return token, nil
}

func (m *mockLocker) ReleaseLock(_ context.Context, name, token string) error {
	m.releases++
	if m.held[name] != token {
		return errors.New("token mismatch")
	}
	delete(m.held, name)
	return nil
}

// ── 测试辅助 ──

func newMockRepository() (*repository.Repository, *mockPreferenceRepo, *mockPlanRepo) {
	prefRepo := newMockPreferenceRepo()
	planRepo := newMockPlanRepo()
	return &repository.Repository{
		Preference: prefRepo,
		Plan:       planRepo,
	}, prefRepo, planRepo
}

func testPlannerConfig() *config.PlannerConfig {
	return &config.PlannerConfig{
		PeriodCount: 11,
		PeriodTimes: []string{
			"07:25-08:15", "08:30-09:20", "09:35-10:25", "10:40-11:30",
			"11:45-12:35", "12:50-13:40", "13:55-14:45", "15:00-15:50",
			"16:05-16:55", "17:10-18:00", "18:15-19:05",
		},
		TermStart: "2026-01-12",
		TermWeeks: 16,
		Timezone:  "America/New_York",
	}
}
