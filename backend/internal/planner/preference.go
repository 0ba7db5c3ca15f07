package planner

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 偏好字段名（与持久化记录列名一致）
const (
	FieldMajorCount    = "major_count"
	FieldMinorCount    = "minor_count"
	FieldElectiveCount = "elective_count"
	FieldMinCredits    = "min_credits"
	FieldMaxCredits    = "max_credits"
)

// fieldAliases 兼容求解服务请求体中的 x/y/z 简写
var fieldAliases = map[string]string{
	"x": FieldMajorCount,
	"y": FieldMinorCount,
	"z": FieldElectiveCount,
}

// ErrUnknownField 偏好字段名不存在
var ErrUnknownField = errors.New("unknown preference field")

// Preference 学生的排课偏好草稿
type Preference struct {
	MajorCount    int       `json:"major_count"`
	MinorCount    int       `json:"minor_count"`
	ElectiveCount int       `json:"elective_count"`
	MinCredits    int       `json:"min_credits"`
	MaxCredits    int       `json:"max_credits"`
	Blacklist     Blacklist `json:"blacklist"`
}

// DefaultPreference 首次进入或无持久化记录时使用的默认偏好
func DefaultPreference() Preference {
	return Preference{
		MajorCount:    2,
		MinorCount:    1,
		ElectiveCount: 1,
		MinCredits:    12,
		MaxCredits:    16,
		Blacklist:     EmptyBlacklist(),
	}
}

// Clone 深拷贝，黑名单补齐五个工作日
func (p Preference) Clone() Preference {
	out := p
	out.Blacklist = p.Blacklist.Clone()
	return out
}

// SetField 按字段名写入原始输入
// 解析失败时写入 0，不返回错误；只有字段名未知才报错，此时返回原值
func (p Preference) SetField(name, raw string) (Preference, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := fieldAliases[key]; ok {
		key = alias
	}

	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		n = 0
	}

	out := p.Clone()
	switch key {
	case FieldMajorCount:
		out.MajorCount = n
	case FieldMinorCount:
		out.MinorCount = n
	case FieldElectiveCount:
		out.ElectiveCount = n
	case FieldMinCredits:
		out.MinCredits = n
	case FieldMaxCredits:
		out.MaxCredits = n
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return out, nil
}

// ValidationError 偏好校验失败
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate 在保存或求解前做结构与跨字段校验
// SetField 本身不做范围约束，上下限的正确性最终由求解服务判定
func (p Preference) Validate() error {
	counts := []struct {
		field string
		value int
	}{
		{FieldMajorCount, p.MajorCount},
		{FieldMinorCount, p.MinorCount},
		{FieldElectiveCount, p.ElectiveCount},
	}
	for _, c := range counts {
		if c.value < 0 {
			return &ValidationError{Field: c.field, Message: "must not be negative"}
		}
	}
	if p.MinCredits <= 0 {
		return &ValidationError{Field: FieldMinCredits, Message: "must be positive"}
	}
	if p.MaxCredits <= 0 {
		return &ValidationError{Field: FieldMaxCredits, Message: "must be positive"}
	}
	if p.MinCredits > p.MaxCredits {
		return &ValidationError{
			Field:   FieldMinCredits,
			Message: fmt.Sprintf("min credits %d exceed max credits %d", p.MinCredits, p.MaxCredits),
		}
	}
	return nil
}
