package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/solver"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

const cellWidth = 10

var (
	lectureColor = color.New(color.FgCyan, color.Bold)
	classColor   = color.New(color.FgYellow)
	headerColor  = color.New(color.Bold)
)

type cell struct {
	code    string
	lecture bool
}

// RenderGrid prints an assignment as a weekly timetable, one row per half-hour slot between the
// first and the last occupied slot
func RenderGrid(out io.Writer, problem model.Problem, assignment solver.Assignment) error {
	var grid [timegrid.SlotsPerDay][timegrid.Days]*cell
	first, last := timegrid.SlotsPerDay, -1

	for i, pick := range assignment {
		if i >= len(problem.Courses) {
			break
		}
		course := problem.Courses[i]
		position, ok := course.VariantPosition(pick.Index)
		if !ok {
			return fmt.Errorf("index %q does not belong to course %q: %w", pick.Index, course.Code, timegrid.ErrInvalidInput)
		}
		variant := course.Variants[position]

		for day := range timegrid.Days {
			slots, lectures := variant.Full.Day(day), variant.Lecture.Day(day)
			for slot := range timegrid.SlotsPerDay {
				if slots&(1<<slot) == 0 {
					continue
				}
				grid[slot][day] = &cell{code: course.Code, lecture: lectures&(1<<slot) != 0}
				first, last = min(first, slot), max(last, slot)
			}
		}
	}

	//** Header
	if _, err := headerColor.Fprint(out, pad("")); err != nil {
		return err
	}
	for day := range timegrid.Days {
		if _, err := headerColor.Fprint(out, pad(timegrid.DayToken(day))); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(out); err != nil {
		return err
	}

	//** Rows
	for slot := first; slot <= last; slot++ {
		minutes := timegrid.FirstHour*60 + slot*30
		if _, err := fmt.Fprint(out, pad(fmt.Sprintf("%02d:%02d", minutes/60, minutes%60))); err != nil {
			return err
		}
		for day := range timegrid.Days {
			entry := grid[slot][day]
			var err error
			switch {
			case entry == nil:
				_, err = fmt.Fprint(out, pad("."))
			case entry.lecture:
				_, err = lectureColor.Fprint(out, pad(entry.code))
			default:
				_, err = classColor.Fprint(out, pad(entry.code))
			}
			if err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return nil
}

func pad(text string) string {
	if len(text) >= cellWidth {
		return text[:cellWidth-1] + " "
	}
	return text + strings.Repeat(" ", cellWidth-len(text))
}
