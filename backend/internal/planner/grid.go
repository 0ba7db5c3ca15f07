package planner

import (
	"fmt"
	"strings"
)

// Grid 黑名单的稠密视图：工作日 × 节次布尔矩阵
// 始终由 Blacklist 派生，不单独存储
type Grid struct {
	periods int
	cells   [][]bool // cells[dayIndex][period-1]
}

// NewGrid 按节次上限构建网格，超出上限的节次不出现在网格中
func NewGrid(b Blacklist, periods int) Grid {
	if periods <= 0 {
		periods = DefaultPeriodCount
	}
	cells := make([][]bool, len(Weekdays))
	for i, d := range Weekdays {
		row := make([]bool, periods)
		for _, p := range b[d] {
			if p >= 1 && p <= periods {
				row[p-1] = true
			}
		}
		cells[i] = row
	}
	return Grid{periods: periods, cells: cells}
}

// Periods 每天节次数
func (g Grid) Periods() int { return g.periods }

// Blocked 查询某节是否屏蔽，越界返回 false
func (g Grid) Blocked(day string, period int) bool {
	i := weekdayIndex(day)
	if i < 0 || period < 1 || period > g.periods {
		return false
	}
	return g.cells[i][period-1]
}

// Blacklist 网格还原为稀疏黑名单
func (g Grid) Blacklist() Blacklist {
	b := EmptyBlacklist()
	for i, d := range Weekdays {
		for p, blocked := range g.cells[i] {
			if blocked {
				b[d] = append(b[d], p+1)
			}
		}
	}
	return b
}

// Render 以文本表格输出网格，X 表示屏蔽
func (g Grid) Render() string {
	var sb strings.Builder
	sb.WriteString("    ")
	for _, d := range Weekdays {
		fmt.Fprintf(&sb, " %s", d)
	}
	sb.WriteString("\n")
	for p := 1; p <= g.periods; p++ {
		fmt.Fprintf(&sb, "P%-3d", p)
		for i := range Weekdays {
			mark := "."
			if g.cells[i][p-1] {
				mark = "X"
			}
			fmt.Fprintf(&sb, " %s", mark)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
