package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/model"
	"ai-advisor/backend/internal/planner"
	"ai-advisor/backend/internal/repository"
)

// ── 课表方案模块业务错误 ──

var (
	ErrPlanNotFound = errors.New("课表方案不存在")
	ErrPlanNotOwner = errors.New("无权访问该课表方案")
	ErrPlanInvalid  = errors.New("课表方案数据不合法")
)

// PlanService 课表方案业务接口
type PlanService interface {
	Create(ctx context.Context, userID string, req *dto.CreatePlanRequest) (*dto.PlanResponse, error)
	List(ctx context.Context, userID string) ([]dto.PlanResponse, error)
	Get(ctx context.Context, userID, planID string) (*dto.PlanResponse, error)
	SetActive(ctx context.Context, userID, planID string) error
	Delete(ctx context.Context, userID, planID string) error
}

type planService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(repo *repository.Repository, logger *zap.Logger) PlanService {
	return &planService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *planService) Create(ctx context.Context, userID string, req *dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: 方案名称不能为空", ErrPlanInvalid)
	}
	if len(req.Courses) == 0 {
		return nil, fmt.Errorf("%w: 课程列表不能为空", ErrPlanInvalid)
	}
	for _, c := range req.Courses {
		if c.CourseID == "" {
			return nil, fmt.Errorf("%w: course_id 不能为空", ErrPlanInvalid)
		}
		for _, slot := range c.Slots {
			if !planner.IsWeekday(slot.Day) || slot.Period < 1 {
				return nil, fmt.Errorf("%w: %s 的上课时段 %s%d 无效", ErrPlanInvalid, c.CourseID, slot.Day, slot.Period)
			}
		}
	}

	total := planner.TotalCredits(req.Courses)
	if req.TotalCredits != nil {
		total = *req.TotalCredits
	}

	plan := &model.UserPlan{
		UserID:       userID,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		TotalCredits: total,
		PlanData:     model.CourseList(req.Courses),
	}
	create := s.repo.Plan.Create
	if req.Activate {
		create = s.repo.Plan.CreateActive
	}
	if err := create(ctx, plan); err != nil {
		s.logger.Error("创建课表方案失败", zap.String("user_id", userID), zap.Bool("activate", req.Activate), zap.Error(err))
		return nil, err
	}

	return toPlanResponse(plan), nil
}

// ────────────────────── List ──────────────────────

func (s *planService) List(ctx context.Context, userID string) ([]dto.PlanResponse, error) {
	plans, err := s.repo.Plan.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("列出课表方案失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		result = append(result, *toPlanResponse(&plans[i]))
	}
	return result, nil
}

// ────────────────────── Get ──────────────────────

func (s *planService) Get(ctx context.Context, userID, planID string) (*dto.PlanResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, userID, planID)
	if err != nil {
		return nil, err
	}
	return toPlanResponse(plan), nil
}

// ────────────────────── SetActive ──────────────────────

func (s *planService) SetActive(ctx context.Context, userID, planID string) error {
	if _, err := loadOwnedPlan(ctx, s.repo, s.logger, userID, planID); err != nil {
		return err
	}
	if err := s.repo.Plan.SetActive(ctx, userID, planID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlanNotFound
		}
		s.logger.Error("激活课表方案失败", zap.String("plan_id", planID), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *planService) Delete(ctx context.Context, userID, planID string) error {
	if _, err := loadOwnedPlan(ctx, s.repo, s.logger, userID, planID); err != nil {
		return err
	}
	if err := s.repo.Plan.Delete(ctx, planID); err != nil {
		s.logger.Error("删除课表方案失败", zap.String("plan_id", planID), zap.Error(err))
		return err
	}
	return nil
}

// ── 辅助函数 ──

// loadOwnedPlan 读取方案并校验归属
func loadOwnedPlan(ctx context.Context, repo *repository.Repository, logger *zap.Logger, userID, planID string) (*model.UserPlan, error) {
	// plan_id 列为 uuid，非法值直接按不存在处理
	if _, err := uuid.Parse(planID); err != nil {
		return nil, ErrPlanNotFound
	}
	plan, err := repo.Plan.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		logger.Error("查询课表方案失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrPlanNotOwner
	}
	return plan, nil
}

func toPlanResponse(p *model.UserPlan) *dto.PlanResponse {
	courses := []planner.ConsolidatedCourse(p.PlanData)
	if courses == nil {
		courses = []planner.ConsolidatedCourse{}
	}
	return &dto.PlanResponse{
		ID:           p.PlanID,
		Name:         p.Name,
		Description:  p.Description,
		IsActive:     p.IsActive,
		TotalCredits: p.TotalCredits,
		CourseCount:  len(courses),
		Courses:      courses,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    p.UpdatedAt.Format(time.RFC3339),
	}
}
