package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Preference PreferenceRepository
	Plan       PlanRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Preference: NewPreferenceRepo(db),
		Plan:       NewPlanRepo(db),
	}
}
