package planner

import (
	"sort"
)

// Weekdays 固定的工作日编码顺序（R 表示周四）
var Weekdays = []string{"M", "T", "W", "R", "F"}

// DefaultPeriodCount 每天默认节次数
const DefaultPeriodCount = 11

// Slot 一次每周上课时间（星期, 节次）
type Slot struct {
	Day    string `json:"day"`
	Period int    `json:"period"`
}

// Blacklist 星期 → 不可用节次集合（升序、去重）
type Blacklist map[string][]int

// IsWeekday 判断是否为合法工作日编码
func IsWeekday(day string) bool {
	return weekdayIndex(day) >= 0
}

func weekdayIndex(day string) int {
	for i, d := range Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

// EmptyBlacklist 五个工作日均为空集合
func EmptyBlacklist() Blacklist {
	b := make(Blacklist, len(Weekdays))
	for _, d := range Weekdays {
		b[d] = []int{}
	}
	return b
}

// Clone 拷贝并补齐五个工作日，丢弃非法星期
func (b Blacklist) Clone() Blacklist {
	out := make(Blacklist, len(Weekdays))
	for _, d := range Weekdays {
		out[d] = append([]int{}, b[d]...)
	}
	return out
}

// Contains 判断某节是否被屏蔽
func (b Blacklist) Contains(day string, period int) bool {
	for _, p := range b[day] {
		if p == period {
			return true
		}
	}
	return false
}

// Len 屏蔽的节次总数
func (b Blacklist) Len() int {
	n := 0
	for _, d := range Weekdays {
		n += len(b[d])
	}
	return n
}

// Toggle 切换某节的屏蔽状态，返回新黑名单
// 非法星期视为无操作；连续切换两次与原值相等
func Toggle(b Blacklist, day string, period int) Blacklist {
	out := b.Clone()
	if !IsWeekday(day) {
		return out
	}

	current := out[day]
	if b.Contains(day, period) {
		kept := make([]int, 0, len(current))
		for _, p := range current {
			if p != period {
				kept = append(kept, p)
			}
		}
		out[day] = kept
		return out
	}

	current = append(current, period)
	sort.Ints(current)
	out[day] = current
	return out
}

// ToSlots 展开为按星期、节次升序排列的时间列表，用于持久化
func ToSlots(b Blacklist) []Slot {
	slots := make([]Slot, 0, b.Len())
	for _, d := range Weekdays {
		periods := append([]int{}, b[d]...)
		sort.Ints(periods)
		for _, p := range periods {
			slots = append(slots, Slot{Day: d, Period: p})
		}
	}
	return slots
}

// FromSlots ToSlots 的逆变换
// 重复项去重，非法星期与非正节次直接丢弃
func FromSlots(slots []Slot) Blacklist {
	b := EmptyBlacklist()
	for _, s := range slots {
		if !IsWeekday(s.Day) || s.Period < 1 {
			continue
		}
		if b.Contains(s.Day, s.Period) {
			continue
		}
		b[s.Day] = append(b[s.Day], s.Period)
	}
	for _, d := range Weekdays {
		sort.Ints(b[d])
	}
	return b
}

// Normalize 将任意外部输入整理为规范形式
func Normalize(b Blacklist) Blacklist {
	slots := make([]Slot, 0, len(b))
	for day, periods := range b {
		for _, p := range periods {
			slots = append(slots, Slot{Day: day, Period: p})
		}
	}
	return FromSlots(slots)
}
