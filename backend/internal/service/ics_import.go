package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/dto"
	"ai-advisor/backend/internal/planner"
)

// ── ICS 导入 ────────────────────────────────────────────────
//
// 将学生已有的日历（打工排班、社团活动等）转换为屏蔽时段：
//   - DTSTART/DTEND 确定星期几与时间段，与任一节次有重叠即屏蔽该节
//   - 周末事件忽略
//   - 单次事件必须落在学期内；重复事件的 UNTIL 早于学期开始则忽略
//   - 跨午夜的事件截断到当天结束
// ─────────────────────────────────────────────────────────────

const icsMaxFileSize = 5 * 1024 * 1024 // 5MB

var (
	ErrICSInvalid      = errors.New("ICS 格式解析失败")
	ErrICSPeriodConfig = errors.New("节次时间未配置，无法导入日历")
)

// ImportService 日历导入业务接口
type ImportService interface {
	ImportBlacklist(ctx context.Context, r io.Reader) (*dto.BlacklistImportResponse, error)
}

type importService struct {
	cfg    *config.PlannerConfig
	logger *zap.Logger
}

// NewImportService 创建 ImportService 实例
func NewImportService(cfg *config.PlannerConfig, logger *zap.Logger) ImportService {
	return &importService{cfg: cfg, logger: logger}
}

func (s *importService) ImportBlacklist(_ context.Context, r io.Reader) (*dto.BlacklistImportResponse, error) {
	windows, err := parsePeriodTimes(s.cfg)
	if err != nil || len(windows) == 0 {
		return nil, ErrICSPeriodConfig
	}

	cal, err := ics.ParseCalendar(io.LimitReader(r, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrICSInvalid, err)
	}

	loc := plannerLocation(s.cfg)
	termStart, termEnd, hasTerm := s.termRange(loc)

	var slots []planner.Slot
	resp := &dto.BlacklistImportResponse{}
	for _, evt := range cal.Events() {
		found, ok := blockedSlots(evt, windows, loc, termStart, termEnd, hasTerm)
		if !ok {
			resp.Skipped++
			continue
		}
		resp.Events++
		slots = append(slots, found...)
	}

	resp.Slots = planner.ToSlots(planner.FromSlots(slots))
	s.logger.Info("日历导入完成",
		zap.Int("events", resp.Events),
		zap.Int("skipped", resp.Skipped),
		zap.Int("slots", len(resp.Slots)),
	)
	return resp, nil
}

func (s *importService) termRange(loc *time.Location) (time.Time, time.Time, bool) {
	start, err := time.ParseInLocation("2006-01-02", s.cfg.TermStart, loc)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	weeks := s.cfg.TermWeeks
	if weeks <= 0 {
		weeks = 16
	}
	return start, start.AddDate(0, 0, weeks*7), true
}

// blockedSlots 计算单个 VEVENT 覆盖的节次
func blockedSlots(evt *ics.VEvent, windows []periodWindow, loc *time.Location, termStart, termEnd time.Time, hasTerm bool) ([]planner.Slot, bool) {
	dtStart, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil {
		return nil, false
	}
	dtEnd, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc)
	if err != nil || !dtEnd.After(dtStart) {
		// 全天事件或缺少 DTEND 视为无法映射到节次
		return nil, false
	}

	day := weekdayCode(dtStart.Weekday())
	if day == "" {
		return nil, false
	}

	if hasTerm {
		rruleProp := evt.GetProperty(ics.ComponentPropertyRrule)
		if rruleProp == nil {
			if dtStart.Before(termStart) || !dtStart.Before(termEnd) {
				return nil, false
			}
		} else {
			rule := parseRRule(rruleProp.Value)
			if !rule.until.IsZero() && rule.until.Before(termStart) {
				return nil, false
			}
			if !dtStart.Before(termEnd) {
				return nil, false
			}
		}
	}

	start := dtStart.Hour()*60 + dtStart.Minute()
	end := 24 * 60
	if sameDay(dtStart, dtEnd) {
		end = dtEnd.Hour()*60 + dtEnd.Minute()
	}

	var slots []planner.Slot
	for _, w := range windows {
		if w.Start < end && start < w.End {
			slots = append(slots, planner.Slot{Day: day, Period: w.Period})
		}
	}
	if len(slots) == 0 {
		return nil, false
	}
	return slots, true
}

// rruleParams RRULE 解析结果（仅关心截止条件）
type rruleParams struct {
	freq  string
	until time.Time
}

// parseRRule 解析 RRULE 字符串（如 FREQ=WEEKLY;UNTIL=20260501T000000Z）
func parseRRule(value string) rruleParams {
	var r rruleParams
	for _, part := range strings.Split(value, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "FREQ":
			r.freq = strings.ToUpper(kv[1])
		case "UNTIL":
			t, err := time.Parse("20060102T150405Z", kv[1])
			if err != nil {
				t, _ = time.Parse("20060102", kv[1])
			}
			r.until = t
		}
	}
	return r
}

// ── 辅助函数 ──

func weekdayCode(wd time.Weekday) string {
	if wd < time.Monday || wd > time.Friday {
		return ""
	}
	return planner.Weekdays[int(wd)-1]
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，统一换算到排课时区
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := prop.Value

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	for _, layout := range []string{"20060102T150405Z", "20060102T150405"} {
		t, err := time.Parse(layout, val)
		if err != nil {
			continue
		}
		if strings.HasSuffix(layout, "Z") {
			return t.In(loc), nil
		}
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("无法解析日期: %s", val)
}
