package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/model"
	"ai-advisor/backend/internal/planner"
)

// ── 测试辅助 ──

func setupTestExportService(cfg *config.PlannerConfig) (ExportService, *mockPlanRepo) {
	repo, _, planRepo := newMockRepository()
	svc := NewExportService(repo, cfg, zap.NewNop())
	svc.(*exportService).now = func() time.Time { return time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC) }
	return svc, planRepo
}

func seedPlan(t *testing.T, planRepo *mockPlanRepo) *model.UserPlan {
	t.Helper()
	plan := &model.UserPlan{
		UserID:       "user-1",
		Name:         "Spring 2026",
		TotalCredits: 7,
		PlanData: model.CourseList{
			{CourseID: "COP3502", CourseName: "Programming Fundamentals 1", Credits: 3, CourseType: "major",
				Slots: []planner.Slot{{Day: "M", Period: 3}, {Day: "W", Period: 3}, {Day: "F", Period: 3}}},
			{CourseID: "MAC2311", CourseName: "Calculus 1", Credits: 4, CourseType: "major",
				Slots: []planner.Slot{{Day: "T", Period: 2}, {Day: "R", Period: 12}}},
		},
	}
	if err := planRepo.Create(context.Background(), plan); err != nil {
		t.Fatalf("创建方案失败: %v", err)
	}
	return plan
}

// ── ExportPlanExcel 测试 ──

func TestExportService_Excel_NotFound(t *testing.T) {
	svc, _ := setupTestExportService(testPlannerConfig())

	_, _, err := svc.ExportPlanExcel(context.Background(), "user-1", "missing")
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("期望 ErrPlanNotFound，实际: %v", err)
	}
}

func TestExportService_Excel_NotOwner(t *testing.T) {
	svc, planRepo := setupTestExportService(testPlannerConfig())
	plan := seedPlan(t, planRepo)

	_, _, err := svc.ExportPlanExcel(context.Background(), "user-2", plan.PlanID)
	if !errors.Is(err, ErrPlanNotOwner) {
		t.Errorf("期望 ErrPlanNotOwner，实际: %v", err)
	}
}

func TestExportService_Excel_Grid(t *testing.T) {
	svc, planRepo := setupTestExportService(testPlannerConfig())
	plan := seedPlan(t, planRepo)

	buf, filename, err := svc.ExportPlanExcel(context.Background(), "user-1", plan.PlanID)
	if err != nil {
		t.Fatalf("ExportPlanExcel 应成功: %v", err)
	}
	if filename != "Spring_2026.xlsx" {
		t.Errorf("文件名不符: %s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("无法打开生成的 Excel: %v", err)
	}
	defer f.Close()

	// 第 3 节在第 5 行；周一为 C 列、周三为 E 列
	for _, ref := range []string{"C5", "E5", "G5"} {
		v, _ := f.GetCellValue("Schedule", ref)
		if !strings.HasPrefix(v, "COP3502") {
			t.Errorf("%s 期望 COP3502，实际=%q", ref, v)
		}
	}
	if v, _ := f.GetCellValue("Schedule", "D4"); !strings.HasPrefix(v, "MAC2311") {
		t.Errorf("D4 期望 MAC2311，实际=%q", v)
	}
	if v, _ := f.GetCellValue("Schedule", "B3"); v != "07:25-08:15" {
		t.Errorf("B3 期望节次时间，实际=%q", v)
	}
	if v, _ := f.GetCellValue("Courses", "A3"); v != "MAC2311" {
		t.Errorf("课程清单 A3 期望 MAC2311，实际=%q", v)
	}
}

// ── ExportPlanICS 测试 ──

func TestExportService_ICS_Events(t *testing.T) {
	svc, planRepo := setupTestExportService(testPlannerConfig())
	plan := seedPlan(t, planRepo)

	buf, filename, err := svc.ExportPlanICS(context.Background(), "user-1", plan.PlanID)
	if err != nil {
		t.Fatalf("ExportPlanICS 应成功: %v", err)
	}
	if filename != "Spring_2026.ics" {
		t.Errorf("文件名不符: %s", filename)
	}

	cal, err := ics.ParseCalendar(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("生成的 ICS 无法解析: %v", err)
	}
	events := cal.Events()
	// R12 超出 11 节配置，被跳过
	if len(events) != 4 {
		t.Fatalf("期望 4 个事件，实际=%d", len(events))
	}

	loc, _ := time.LoadLocation("America/New_York")
	first := events[0]
	start, err := first.GetStartAt()
	if err != nil {
		t.Fatalf("DTSTART 解析失败: %v", err)
	}
	// 2026-01-12 为周一，第 3 节 09:35 开始
	want := time.Date(2026, 1, 12, 9, 35, 0, 0, loc)
	if !start.Equal(want) {
		t.Errorf("期望 DTSTART=%v，实际=%v", want, start)
	}
	rrule := first.GetProperty(ics.ComponentPropertyRrule)
	if rrule == nil || rrule.Value != "FREQ=WEEKLY;COUNT=16" {
		t.Errorf("RRULE 不符: %v", rrule)
	}
	if s := first.GetProperty(ics.ComponentPropertySummary); s == nil || !strings.HasPrefix(s.Value, "COP3502") {
		t.Errorf("SUMMARY 不符: %v", s)
	}
}

func TestExportService_ICS_BadTermStart(t *testing.T) {
	cfg := testPlannerConfig()
	cfg.TermStart = ""
	svc, planRepo := setupTestExportService(cfg)
	plan := seedPlan(t, planRepo)

	_, _, err := svc.ExportPlanICS(context.Background(), "user-1", plan.PlanID)
	if !errors.Is(err, ErrExportTermInvalid) {
		t.Errorf("期望 ErrExportTermInvalid，实际: %v", err)
	}
}

func TestExportFilename(t *testing.T) {
	tests := map[string]string{
		"Spring 2026":  "Spring_2026.ics",
		"  ":           "plan.ics",
		"a/b\\c":       "a_b_c.ics",
		"春季课表":         "plan.ics",
		"final-v2.1":   "final-v2.1.ics",
	}
	for in, want := range tests {
		if got := exportFilename(in, "ics"); got != want {
			t.Errorf("exportFilename(%q) = %q，期望 %q", in, got, want)
		}
	}
}
