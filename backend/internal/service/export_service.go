package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ai-advisor/backend/config"
	"ai-advisor/backend/internal/planner"
	"ai-advisor/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成导出文件失败")
	ErrExportTermInvalid  = errors.New("学期起始日期或节次时间未配置")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportPlanExcel 课表方案导出为 Excel 周视图
	ExportPlanExcel(ctx context.Context, userID, planID string) (*bytes.Buffer, string, error)
	// ExportPlanICS 课表方案导出为 iCalendar，每个上课时段一个按周重复的事件
	ExportPlanICS(ctx context.Context, userID, planID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	cfg    *config.PlannerConfig
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, cfg *config.PlannerConfig, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, cfg: cfg, logger: logger, now: time.Now}
}

var dayHeaders = map[string]string{
	"M": "Monday", "T": "Tuesday", "W": "Wednesday", "R": "Thursday", "F": "Friday",
}

// ═══════════════════════════════════════════════════════════
// ExportPlanExcel 课表方案导出为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Schedule"：行为第 1..N 节，列为周一 ~ 周五，单元格 "课程号 课程名"
//   - Sheet "Courses"：课程清单（课程号、名称、学分、类型、上课时段）

func (s *exportService) ExportPlanExcel(ctx context.Context, userID, planID string) (*bytes.Buffer, string, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, userID, planID)
	if err != nil {
		return nil, "", err
	}
	courses := []planner.ConsolidatedCourse(plan.PlanData)

	periods := s.cfg.PeriodCount
	if periods <= 0 {
		periods = planner.DefaultPeriodCount
	}
	windows, _ := parsePeriodTimes(s.cfg)

	// 1. 构建单元格索引: "day:period" → 文本
	cellIndex := make(map[string][]string)
	for _, c := range courses {
		text := c.CourseID
		if c.CourseName != "" {
			text += " " + c.CourseName
		}
		for _, slot := range c.Slots {
			key := fmt.Sprintf("%s:%d", slot.Day, slot.Period)
			cellIndex[key] = append(cellIndex[key], text)
		}
	}

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Schedule"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 14)
	f.SetColWidth(sheetName, "C", colName(1+len(planner.Weekdays)), 28)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	wrapStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s (%.1f credits)", plan.Name, plan.TotalCredits))
	f.MergeCell(sheetName, "A1", cell(colName(1+len(planner.Weekdays)), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	f.SetCellValue(sheetName, cell("A", row), "Period")
	f.SetCellValue(sheetName, cell("B", row), "Time")
	for i, d := range planner.Weekdays {
		f.SetCellValue(sheetName, cell(colName(2+i), row), dayHeaders[d])
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(1+len(planner.Weekdays)), row), headerStyle)

	// 数据行
	for p := 1; p <= periods; p++ {
		row = p + 2
		f.SetCellValue(sheetName, cell("A", row), p)
		if p <= len(windows) {
			f.SetCellValue(sheetName, cell("B", row), windows[p-1].Label)
		}
		for i, d := range planner.Weekdays {
			texts := cellIndex[fmt.Sprintf("%s:%d", d, p)]
			if len(texts) == 0 {
				continue
			}
			ref := cell(colName(2+i), row)
			f.SetCellValue(sheetName, ref, strings.Join(texts, "\n"))
			f.SetCellStyle(sheetName, ref, ref, wrapStyle)
		}
	}

	// 课程清单
	listSheet := "Courses"
	f.NewSheet(listSheet)
	f.SetColWidth(listSheet, "A", "A", 12)
	f.SetColWidth(listSheet, "B", "B", 36)
	f.SetColWidth(listSheet, "E", "E", 24)
	for i, h := range []string{"Course", "Name", "Credits", "Type", "Meetings"} {
		f.SetCellValue(listSheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(listSheet, "A1", "E1", headerStyle)
	for i, c := range courses {
		r := i + 2
		meetings := make([]string, 0, len(c.Slots))
		for _, slot := range c.Slots {
			meetings = append(meetings, fmt.Sprintf("%s%d", slot.Day, slot.Period))
		}
		f.SetCellValue(listSheet, cell("A", r), c.CourseID)
		f.SetCellValue(listSheet, cell("B", r), c.CourseName)
		f.SetCellValue(listSheet, cell("C", r), c.Credits)
		f.SetCellValue(listSheet, cell("D", r), c.CourseType)
		f.SetCellValue(listSheet, cell("E", r), strings.Join(meetings, " "))
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	return buf, exportFilename(plan.Name, "xlsx"), nil
}

// ═══════════════════════════════════════════════════════════
// ExportPlanICS 课表方案导出为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// 每个 (课程, 上课时段) 生成一个 VEVENT：
//   - DTSTART 为学期第一周对应工作日的节次开始时间
//   - RRULE:FREQ=WEEKLY;COUNT=<term_weeks>
//   - 节次超出 period_times 配置范围的时段跳过

func (s *exportService) ExportPlanICS(ctx context.Context, userID, planID string) (*bytes.Buffer, string, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, userID, planID)
	if err != nil {
		return nil, "", err
	}

	loc := plannerLocation(s.cfg)
	termStart, err := time.ParseInLocation("2006-01-02", s.cfg.TermStart, loc)
	if err != nil {
		return nil, "", ErrExportTermInvalid
	}
	windows, err := parsePeriodTimes(s.cfg)
	if err != nil || len(windows) == 0 {
		s.logger.Error("节次时间配置无效", zap.Error(err))
		return nil, "", ErrExportTermInvalid
	}
	weeks := s.cfg.TermWeeks
	if weeks <= 0 {
		weeks = 16
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//ai-advisor//course planner//EN")
	cal.SetXWRCalName(plan.Name)
	cal.SetXWRTimezone(loc.String())

	stamp := s.now().UTC()
	skipped := 0
	for _, c := range plan.PlanData {
		for _, slot := range c.Slots {
			dayIdx := weekdayOffset(slot.Day)
			if dayIdx < 0 || slot.Period < 1 || slot.Period > len(windows) {
				skipped++
				continue
			}
			w := windows[slot.Period-1]
			day := termStart.AddDate(0, 0, dayIdx)
			start := time.Date(day.Year(), day.Month(), day.Day(), w.Start/60, w.Start%60, 0, 0, loc)
			end := time.Date(day.Year(), day.Month(), day.Day(), w.End/60, w.End%60, 0, 0, loc)

			evt := cal.AddEvent(fmt.Sprintf("%s-%s-%s%d@ai-advisor", plan.PlanID, c.CourseID, slot.Day, slot.Period))
			evt.SetDtStampTime(stamp)
			evt.SetStartAt(start)
			evt.SetEndAt(end)
			evt.SetSummary(strings.TrimSpace(c.CourseID + " " + c.CourseName))
			evt.SetDescription(fmt.Sprintf("%s · %.1f credits · period %d", c.CourseType, c.Credits, slot.Period))
			evt.AddRrule(fmt.Sprintf("FREQ=WEEKLY;COUNT=%d", weeks))
		}
	}
	if skipped > 0 {
		s.logger.Warn("部分上课时段超出节次配置，已跳过",
			zap.String("plan_id", planID),
			zap.Int("skipped", skipped),
		)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	return buf, exportFilename(plan.Name, "ics"), nil
}

// ── 辅助函数 ──

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func exportFilename(name, ext string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(name, "_"), "_")
	if base == "" {
		base = "plan"
	}
	return fmt.Sprintf("%s.%s", base, ext)
}

// weekdayOffset 工作日相对周一的偏移
func weekdayOffset(day string) int {
	for i, d := range planner.Weekdays {
		if d == day {
			return i
		}
	}
	return -1
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
