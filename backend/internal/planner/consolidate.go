package planner

// SlotRecord 求解服务返回的一行：一门课程的一次上课时间
type SlotRecord struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Credits    float64 `json:"credits"`
	CourseType string  `json:"course_type"`
	Day        string  `json:"day"`
	Period     int     `json:"period"`
}

// ConsolidatedCourse 合并后的一门课程及其全部上课时间
// 课程属性取自该课程第一次出现的记录
type ConsolidatedCourse struct {
	CourseID   string  `json:"course_id"`
	CourseName string  `json:"course_name"`
	Credits    float64 `json:"credits"`
	CourseType string  `json:"course_type"`
	Slots      []Slot  `json:"slots"`
}

// Consolidate 按课程合并逐行记录
// 课程顺序为首次出现顺序，课程内上课时间保持输入顺序
func Consolidate(records []SlotRecord) []ConsolidatedCourse {
	out := make([]ConsolidatedCourse, 0)
	index := make(map[string]int, len(records))

	for _, r := range records {
		i, ok := index[r.CourseID]
		if !ok {
			out = append(out, ConsolidatedCourse{
				CourseID:   r.CourseID,
				CourseName: r.CourseName,
				Credits:    r.Credits,
				CourseType: r.CourseType,
				Slots:      []Slot{},
			})
			i = len(out) - 1
			index[r.CourseID] = i
		}
		out[i].Slots = append(out[i].Slots, Slot{Day: r.Day, Period: r.Period})
	}
	return out
}

// TotalCredits 合并结果的学分合计
func TotalCredits(courses []ConsolidatedCourse) float64 {
	var total float64
	for _, c := range courses {
		total += c.Credits
	}
	return total
}
