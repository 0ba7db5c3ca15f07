package planner

import "context"

// PreferenceStore 偏好持久化服务（按用户读取 / 按用户覆盖写入）
// Load 无记录时返回 (nil, nil)
type PreferenceStore interface {
	Load(ctx context.Context, userID string) (*Preference, error)
	Save(ctx context.Context, userID string, pref Preference) error
}

// Solver 外部求解服务
//
// Solve 不携带偏好参数：求解服务按传输层认证上下文识别调用者，
// 再从偏好存储中读取该用户最近一次持久化的偏好。
// 因此调用 Solve 前必须确保偏好已落库。
type Solver interface {
	Solve(ctx context.Context) (*SolveResult, error)
}

// SolveResult 求解服务响应
type SolveResult struct {
	Status           string       `json:"status"`
	ScheduledCourses []SlotRecord `json:"scheduled_courses"`
	TotalCredits     float64      `json:"total_credits"`
	ErrorMessage     string       `json:"error_message,omitempty"`
}

// SolveStatusSuccess 求解成功时的 status 取值
const SolveStatusSuccess = "success"

// Succeeded 求解服务是否报告成功
func (r *SolveResult) Succeeded() bool {
	return r != nil && r.Status == SolveStatusSuccess
}

// AuthProvider 当前用户身份及其变更通知
type AuthProvider interface {
	// CurrentUser 返回当前用户 ID；ok=false 表示未登录
	CurrentUser() (userID string, ok bool)
	// Subscribe 注册身份变更回调，返回取消订阅函数
	Subscribe(fn func(userID string, ok bool)) (unsubscribe func())
}
