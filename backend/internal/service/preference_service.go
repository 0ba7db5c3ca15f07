package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/model"
	"ai-advisor/backend/internal/planner"
	"ai-advisor/backend/internal/repository"
)

// ── 偏好模块业务错误 ──

var (
	ErrPreferenceNotFound = errors.New("尚未保存排课偏好")
	ErrPreferenceInvalid  = errors.New("排课偏好不合法")
)

// PreferenceService 偏好业务接口
type PreferenceService interface {
	Get(ctx context.Context, userID string) (*dto.PreferenceResponse, error)
	Upsert(ctx context.Context, userID string, req *dto.UpsertPreferenceRequest) (*dto.PreferenceResponse, error)
	// Effective 返回求解应使用的偏好：无记录时为默认值
	Effective(ctx context.Context, userID string) (planner.Preference, error)
}

type preferenceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewPreferenceService 创建 PreferenceService 实例
func NewPreferenceService(repo *repository.Repository, logger *zap.Logger) PreferenceService {
	return &preferenceService{repo: repo, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *preferenceService) Get(ctx context.Context, userID string) (*dto.PreferenceResponse, error) {
	pref, err := s.repo.Preference.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPreferenceNotFound
		}
		s.logger.Error("查询偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return toPreferenceResponse(pref), nil
}

// ────────────────────── Upsert ──────────────────────

func (s *preferenceService) Upsert(ctx context.Context, userID string, req *dto.UpsertPreferenceRequest) (*dto.PreferenceResponse, error) {
	pref := req.ToPlanner()
	if err := pref.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreferenceInvalid, err)
	}

	record := model.NewUserPreference(userID, pref)
	if err := s.repo.Preference.Upsert(ctx, record); err != nil {
		s.logger.Error("保存偏好失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = time.Now()
	}

	s.logger.Info("偏好已保存",
		zap.String("user_id", userID),
		zap.Int("blacklist_size", pref.Blacklist.Len()),
	)
	return toPreferenceResponse(record), nil
}

// ────────────────────── Effective ──────────────────────

func (s *preferenceService) Effective(ctx context.Context, userID string) (planner.Preference, error) {
	if userID == "" {
		return planner.DefaultPreference(), nil
	}
	pref, err := s.repo.Preference.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return planner.DefaultPreference(), nil
		}
		s.logger.Error("查询偏好失败", zap.String("user_id", userID), zap.Error(err))
		return planner.Preference{}, err
	}
	return pref.ToPlanner(), nil
}

// ── 辅助函数 ──

func toPreferenceResponse(p *model.UserPreference) *dto.PreferenceResponse {
	slots := planner.ToSlots(planner.FromSlots(p.Blacklist))
	return &dto.PreferenceResponse{
		UserID:        p.UserID,
		MajorCount:    p.MajorCount,
		MinorCount:    p.MinorCount,
		ElectiveCount: p.ElectiveCount,
		MinCredits:    p.MinCredits,
		MaxCredits:    p.MaxCredits,
		Blacklist:     slots,
		UpdatedAt:     p.UpdatedAt.Format(time.RFC3339),
	}
}
