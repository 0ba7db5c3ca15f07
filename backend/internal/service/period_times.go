package service

import (
	"fmt"
	"strings"
	"time"

	"ai-advisor/backend/config"
)

// periodWindow 某一节的起止时间（当天分钟数）
type periodWindow struct {
	Period int
	Start  int
	End    int
	Label  string // "07:25-08:15"
}

// parsePeriodTimes 解析 planner.period_times 配置
func parsePeriodTimes(cfg *config.PlannerConfig) ([]periodWindow, error) {
	n := cfg.PeriodCount
	if n <= 0 || n > len(cfg.PeriodTimes) {
		n = len(cfg.PeriodTimes)
	}
	windows := make([]periodWindow, 0, n)
	for i := 0; i < n; i++ {
		raw := strings.TrimSpace(cfg.PeriodTimes[i])
		parts := strings.SplitN(raw, "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("第 %d 节时间格式错误: %q", i+1, raw)
		}
		start, err := clockMinutes(parts[0])
		if err != nil {
			return nil, fmt.Errorf("第 %d 节开始时间错误: %w", i+1, err)
		}
		end, err := clockMinutes(parts[1])
		if err != nil {
			return nil, fmt.Errorf("第 %d 节结束时间错误: %w", i+1, err)
		}
		if end <= start {
			return nil, fmt.Errorf("第 %d 节结束时间必须晚于开始时间", i+1)
		}
		windows = append(windows, periodWindow{Period: i + 1, Start: start, End: end, Label: raw})
	}
	return windows, nil
}

func clockMinutes(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// plannerLocation 解析排课时区，失败时回退 UTC
func plannerLocation(cfg *config.PlannerConfig) *time.Location {
	if cfg.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
