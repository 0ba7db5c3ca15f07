package model

// UserPlan 用户保存的课表方案，对应 user_plans
type UserPlan struct {
	PlanID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	UserID       string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Name         string     `gorm:"type:varchar(100);not null"                     json:"name"`
	Description  string     `gorm:"type:varchar(500)"                              json:"description"`
	IsActive     bool       `gorm:"not null;default:false"                         json:"is_active"`
	TotalCredits float64    `gorm:"type:numeric(5,1);not null;default:0"           json:"total_credits"`
	PlanData     CourseList `gorm:"type:jsonb;not null;default:'[]'"               json:"plan_data"`
	SoftDeleteModel
}

// TableName 指定表名
func (UserPlan) TableName() string { return "user_plans" }
