package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-advisor/backend/internal/model"
)

// PreferenceRepository 用户偏好数据访问接口
type PreferenceRepository interface {
	GetByUser(ctx context.Context, userID string) (*model.UserPreference, error)
	Upsert(ctx context.Context, pref *model.UserPreference) error
}

type preferenceRepo struct {
	db *gorm.DB
}

// NewPreferenceRepo 创建 PreferenceRepository 实例
func NewPreferenceRepo(db *gorm.DB) PreferenceRepository {
	return &preferenceRepo{db: db}
}

func (r *preferenceRepo) GetByUser(ctx context.Context, userID string) (*model.UserPreference, error) {
	var pref model.UserPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&pref).Error
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// Upsert 按 user_id 覆盖写入，后写入者胜出
func (r *preferenceRepo) Upsert(ctx context.Context, pref *model.UserPreference) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"major_count":    pref.MajorCount,
				"minor_count":    pref.MinorCount,
				"elective_count": pref.ElectiveCount,
				"min_credits":    pref.MinCredits,
				"max_credits":    pref.MaxCredits,
				"blacklist":      pref.Blacklist,
				"updated_at":     gorm.Expr("NOW()"),
			}),
		}).
		Create(pref).Error
}
