package export

import (
	"io"

	"github.com/gocarina/gocsv"

	"github.com/limaJavier/indexoptimizer/pkg/solver"
)

// ScheduleRow is one course of one schedule, flattened for spreadsheets
type ScheduleRow struct {
	Schedule int    `csv:"schedule"`
	Code     string `csv:"code"`
	Index    string `csv:"index"`
}

func SolutionRows(solutions []solver.Assignment) []*ScheduleRow {
	rows := make([]*ScheduleRow, 0)
	for i, assignment := range solutions {
		for _, pick := range assignment {
			rows = append(rows, &ScheduleRow{Schedule: i + 1, Code: pick.Code, Index: pick.Index})
		}
	}
	return rows
}

func EnumerationRows(enumeration solver.Enumeration) []*ScheduleRow {
	rows := make([]*ScheduleRow, 0)
	for i, schedule := range enumeration.Schedules {
		for position, index := range schedule {
			code := ""
			if position < len(enumeration.Courses) {
				code = enumeration.Courses[position]
			}
			rows = append(rows, &ScheduleRow{Schedule: i + 1, Code: code, Index: index})
		}
	}
	return rows
}

func WriteSolutionsCSV(out io.Writer, solutions []solver.Assignment) error {
	rows := SolutionRows(solutions)
	return gocsv.Marshal(&rows, out)
}

func WriteEnumerationCSV(out io.Writer, enumeration solver.Enumeration) error {
	rows := EnumerationRows(enumeration)
	return gocsv.Marshal(&rows, out)
}
