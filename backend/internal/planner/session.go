package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// 面向用户的状态文案
const (
	MsgSolving          = "Solving..."
	MsgPreferencesSaved = "Preferences saved"
	MsgNoSchedule       = "No valid schedule found"
	MsgNetworkErrorFmt  = "Network error: %s"
	MsgLoadFallbackFmt  = "Using default preferences: %s"
)

var (
	// ErrNotAuthenticated 保存偏好时无登录用户
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrGenerationInFlight 已有生成请求在执行，本次触发被忽略
	ErrGenerationInFlight = errors.New("generation already in flight")
	// ErrNoStore 会话未配置偏好存储
	ErrNoStore = errors.New("preference store not configured")
	// ErrEmptySolverResponse 求解服务返回空响应
	ErrEmptySolverResponse = errors.New("empty solver response")
)

// SolverError 求解服务明确报告失败
type SolverError struct {
	Message string
}

func (e *SolverError) Error() string { return "solver: " + e.Message }

// Phase 生成请求所处阶段
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseSaving        Phase = "saving"
	PhaseRequesting    Phase = "requesting"
	PhaseConsolidating Phase = "consolidating"
)

// Session 一个客户端会话的偏好草稿与生成流程
//
// 流程：认证变化 → Load → 用户编辑草稿 → Save → Solve → Consolidate → 展示。
// 每个阶段都会覆盖 StatusReporter 的当前状态。
type Session struct {
	store   PreferenceStore
	solver  Solver
	auth    AuthProvider
	status  *StatusReporter
	logger  *zap.Logger
	periods int

	inflight *semaphore.Weighted

	mu           sync.Mutex
	ctx          context.Context
	userID       string
	authed       bool
	draft        Preference
	schedule     []ConsolidatedCourse
	totalCredits float64
	phase        Phase

	unsubscribe func()
	closed      bool
}

// Option 会话可选项
type Option func(*Session)

// WithStatusReporter 使用外部状态槽（多个视图共享）
func WithStatusReporter(r *StatusReporter) Option {
	return func(s *Session) { s.status = r }
}

// WithPeriodCount 设置网格节次上限
func WithPeriodCount(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.periods = n
		}
	}
}

// NewSession 创建会话，草稿为默认偏好
func NewSession(store PreferenceStore, solver Solver, auth AuthProvider, logger *zap.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		store:    store,
		solver:   solver,
		auth:     auth,
		logger:   logger,
		periods:  DefaultPeriodCount,
		inflight: semaphore.NewWeighted(1),
		ctx:      context.Background(),
		draft:    DefaultPreference(),
		schedule: []ConsolidatedCourse{},
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.status == nil {
		s.status = NewStatusReporter()
	}
	return s
}

// Start 订阅身份变化并读取当前用户的偏好
// 先订阅再读取身份，首次加载期间发生的登录、登出或切换账号不会丢失。
// ctx 同时作为后续身份变化触发重新加载时使用的上下文
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if s.auth != nil {
		unsubscribe := s.auth.Subscribe(s.onAuthChange)
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			unsubscribe()
			return
		}
		s.unsubscribe = unsubscribe
		// 持锁读取身份，避免与并发回调交错写回旧用户
		// AuthProvider 在自身锁外通知订阅者
		s.userID, s.authed = s.auth.CurrentUser()
		s.mu.Unlock()
	}

	_, _ = s.Load(ctx)
}

// Close 取消身份订阅，可重复调用
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) onAuthChange(userID string, ok bool) {
	s.mu.Lock()
	if s.authed == ok && s.userID == userID {
		s.mu.Unlock()
		return
	}
	s.userID, s.authed = userID, ok
	s.draft = DefaultPreference()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info("会话身份变化", zap.String("user_id", userID), zap.Bool("authenticated", ok))
	if ok {
		_, _ = s.Load(ctx)
	}
}

func (s *Session) currentUser() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.authed
}

// ── 草稿读写 ──

// Preference 当前草稿的副本
func (s *Session) Preference() Preference {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// SetField 写入一个数值字段
func (s *Session) SetField(name, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.draft.SetField(name, raw)
	if err != nil {
		return err
	}
	s.draft = next
	return nil
}

// TogglePeriod 切换一节的屏蔽状态
func (s *Session) TogglePeriod(day string, period int) Blacklist {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Blacklist = Toggle(s.draft.Blacklist, day, period)
	return s.draft.Blacklist.Clone()
}

// SetBlacklist 整体替换黑名单
func (s *Session) SetBlacklist(b Blacklist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Blacklist = Normalize(b)
}

// Grid 当前黑名单的网格视图
func (s *Session) Grid() Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewGrid(s.draft.Blacklist, s.periods)
}

// ── 状态与结果 ──

// Status 当前状态
func (s *Session) Status() Status { return s.status.Current() }

// Reporter 状态槽
func (s *Session) Reporter() *StatusReporter { return s.status }

// Schedule 最近一次成功生成的课表
func (s *Session) Schedule() []ConsolidatedCourse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ConsolidatedCourse{}, s.schedule...)
}

// TotalCredits 最近一次求解返回的总学分
func (s *Session) TotalCredits() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalCredits
}

// Phase 当前生成阶段
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Busy 是否有生成请求在执行
func (s *Session) Busy() bool { return s.Phase() != PhaseIdle }

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// ════════════════════════════════════════════════════════════
// Load / Save
// ════════════════════════════════════════════════════════════

// Load 读取当前用户的持久化偏好
// 返回 true 表示草稿已被持久化记录替换；无记录或未登录时保留当前草稿。
// 存储失败同样保留草稿，并以 info 状态提示（不阻塞后续操作）。
func (s *Session) Load(ctx context.Context) (bool, error) {
	userID, ok := s.currentUser()
	if !ok || s.store == nil {
		return false, nil
	}

	pref, err := s.store.Load(ctx, userID)
	if err != nil {
		s.logger.Warn("读取偏好失败，沿用当前草稿", zap.String("user_id", userID), zap.Error(err))
		s.status.Info(fmt.Sprintf(MsgLoadFallbackFmt, err.Error()))
		return false, err
	}
	if pref == nil {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// 加载期间身份已变化，丢弃旧用户的结果
	if !s.authed || s.userID != userID {
		return false, nil
	}
	next := pref.Clone()
	next.Blacklist = Normalize(pref.Blacklist)
	s.draft = next
	return true, nil
}

// Save 以当前用户为键覆盖写入草稿
func (s *Session) Save(ctx context.Context) error {
	userID, ok := s.currentUser()
	if !ok {
		s.status.Warning(ErrNotAuthenticated.Error())
		return ErrNotAuthenticated
	}

	if s.store == nil {
		s.status.Error(ErrNoStore.Error())
		return ErrNoStore
	}

	draft := s.Preference()
	if err := draft.Validate(); err != nil {
		s.status.Error(err.Error())
		return err
	}

	if err := s.store.Save(ctx, userID, draft); err != nil {
		s.logger.Error("保存偏好失败", zap.String("user_id", userID), zap.Error(err))
		s.status.Error(err.Error())
		return err
	}

	s.status.Success(MsgPreferencesSaved)
	return nil
}

// ════════════════════════════════════════════════════════════
// Generate: 保存 → 求解 → 合并
// ════════════════════════════════════════════════════════════
//
// 同一时刻只允许一个生成请求；执行中再次触发直接返回 ErrGenerationInFlight，
// 不改变任何状态。保存在求解前完成（失败时记录日志并继续，求解服务读取已有记录）。
// 未登录用户跳过保存，仍可匿名求解。求解本身不设超时，由调用方 ctx 决定。

func (s *Session) Generate(ctx context.Context) error {
	// 占用令牌与切换 phase 在同一把锁内完成，Busy() 与 TryAcquire 始终一致
	s.mu.Lock()
	if !s.inflight.TryAcquire(1) {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	defer func() {
		s.mu.Lock()
		s.phase = PhaseIdle
		s.inflight.Release(1)
		s.mu.Unlock()
	}()

	s.phase = PhaseSaving
	s.schedule = []ConsolidatedCourse{}
	s.totalCredits = 0
	draft := s.draft.Clone()
	userID, authed := s.userID, s.authed
	s.mu.Unlock()

	s.status.Info(MsgSolving)

	if err := draft.Validate(); err != nil {
		s.status.Error(err.Error())
		return err
	}

	// 1. 落库偏好
	if authed && s.store != nil {
		if err := s.store.Save(ctx, userID, draft); err != nil {
			s.logger.Warn("求解前保存偏好失败，使用已持久化的偏好继续", zap.String("user_id", userID), zap.Error(err))
		}
	}

	// 2. 调用求解服务
	s.setPhase(PhaseRequesting)
	result, err := s.solver.Solve(ctx)
	if err == nil && result == nil {
		err = ErrEmptySolverResponse
	}
	if err != nil {
		s.logger.Error("求解请求失败", zap.Error(err))
		s.status.Error(fmt.Sprintf(MsgNetworkErrorFmt, err.Error()))
		return fmt.Errorf("solve: %w", err)
	}
	if !result.Succeeded() {
		s.status.Error(result.ErrorMessage)
		return &SolverError{Message: result.ErrorMessage}
	}

	// 3. 合并
	s.setPhase(PhaseConsolidating)
	courses := Consolidate(result.ScheduledCourses)

	s.mu.Lock()
	s.schedule = courses
	s.totalCredits = result.TotalCredits
	s.mu.Unlock()

	if len(courses) == 0 {
		s.status.Warning(MsgNoSchedule)
		return nil
	}
	s.status.Set(Status{Kind: StatusSuccess})
	return nil
}
