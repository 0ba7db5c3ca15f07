package repository

import (
	"context"

	"gorm.io/gorm"

	"ai-advisor/backend/internal/model"
)

// PlanRepository 课表方案数据访问接口
type PlanRepository interface {
	Create(ctx context.Context, plan *model.UserPlan) error
	CreateActive(ctx context.Context, plan *model.UserPlan) error
	GetByID(ctx context.Context, id string) (*model.UserPlan, error)
	ListByUser(ctx context.Context, userID string) ([]model.UserPlan, error)
	SetActive(ctx context.Context, userID, planID string) error
	Delete(ctx context.Context, id string) error
}

type planRepo struct {
	db *gorm.DB
}

// NewPlanRepo 创建 PlanRepository 实例
func NewPlanRepo(db *gorm.DB) PlanRepository {
	return &planRepo{db: db}
}

func (r *planRepo) Create(ctx context.Context, plan *model.UserPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

// CreateActive 在同一事务内取消该用户已有的激活方案并写入新的激活方案
func (r *planRepo) CreateActive(ctx context.Context, plan *model.UserPlan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UserPlan{}).
			Where("user_id = ? AND is_active = ?", plan.UserID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		plan.IsActive = true
		if err := tx.Create(plan).Error; err != nil {
			plan.IsActive = false
			return err
		}
		return nil
	})
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*model.UserPlan, error) {
	var plan model.UserPlan
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *planRepo) ListByUser(ctx context.Context, userID string) ([]model.UserPlan, error) {
	var plans []model.UserPlan
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&plans).Error
	return plans, err
}

// SetActive 同一用户只保留一个激活方案
func (r *planRepo) SetActive(ctx context.Context, userID, planID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.UserPlan{}).
			Where("user_id = ? AND is_active = ?", userID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		res := tx.Model(&model.UserPlan{}).
			Where("plan_id = ? AND user_id = ?", planID, userID).
			Update("is_active", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// Delete 软删除
func (r *planRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("plan_id = ?", id).
		Delete(&model.UserPlan{}).Error
}
