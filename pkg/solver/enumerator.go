package solver

import (
	"context"
	"fmt"

	"github.com/samber/lo"

	"github.com/limaJavier/indexoptimizer/pkg/conflict"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

const DefaultThreshold = 1000

type weekEnumerator struct {
	threshold int
}

func NewEnumerator(threshold int) Enumerator {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &weekEnumerator{
		threshold: threshold,
	}
}

// enumerationState keeps one 32-bit row per weekday and one row per exam date for the current branch
type enumerationState struct {
	ctx       context.Context
	courses   []model.CourseEntry
	weeks     [][]timegrid.Week // Per-day view of every variant, same layout as courses
	week      timegrid.Week
	exams     map[string]uint32
	chosen    []int
	threshold int
	steps     uint64
	schedules [][]string
	err       error
}

func (enumerator *weekEnumerator) Enumerate(ctx context.Context, problem model.Problem) (Enumeration, uint64, error) {
	if len(problem.Courses) == 0 {
		return Enumeration{Courses: []string{}, Schedules: [][]string{}}, 0, nil
	}
	if err := ctx.Err(); err != nil {
		return Enumeration{Courses: []string{}, Schedules: [][]string{}}, 0, fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
	}

	weeks := make([][]timegrid.Week, len(problem.Courses))
	for i, course := range problem.Courses {
		weeks[i] = make([]timegrid.Week, len(course.Variants))
		for position, variant := range course.Variants {
			weeks[i][position] = variant.Full.Week()
		}
	}

	state := &enumerationState{
		ctx:       ctx,
		courses:   problem.Courses,
		weeks:     weeks,
		exams:     make(map[string]uint32),
		chosen:    make([]int, len(problem.Courses)),
		threshold: enumerator.threshold,
		schedules: make([][]string, 0),
	}
	state.search(0)

	return Enumeration{
		TotalSchedules: len(state.schedules),
		Courses:        lo.Map(problem.Courses, func(course model.CourseEntry, _ int) string { return course.Code }),
		Schedules:      state.schedules,
	}, state.steps, state.err
}

func (state *enumerationState) search(depth int) bool {
	if depth == len(state.courses) {
		schedule := make([]string, len(state.courses))
		for i, course := range state.courses {
			schedule[i] = course.Variants[state.chosen[i]].ID
		}
		state.schedules = append(state.schedules, schedule)
		return len(state.schedules) >= state.threshold
	}

	course := state.courses[depth]
	for position, variant := range course.Variants {
		state.steps++
		if state.steps%contextCheckInterval == 0 {
			if err := state.ctx.Err(); err != nil {
				state.err = fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
				return true
			}
		}

		week := state.weeks[depth][position]
		if conflict.WeekConflict(week, state.week) {
			continue
		}
		if variant.Exam != nil {
			taken := &timegrid.ExamMask{Date: variant.Exam.Date, Slots: state.exams[variant.Exam.Date]}
			if conflict.ExamConflict(variant.Exam, taken) {
				continue
			}
		}

		//** Apply
		previousWeek := state.week
		for day := range week {
			state.week[day] |= week[day]
		}
		var previousExam uint32
		var hadExam bool
		if variant.Exam != nil {
			previousExam, hadExam = state.exams[variant.Exam.Date]
			state.exams[variant.Exam.Date] = previousExam | variant.Exam.Slots
		}
		state.chosen[depth] = position

		stop := state.search(depth + 1)

		//** Undo
		state.week = previousWeek
		if variant.Exam != nil {
			if hadExam {
				state.exams[variant.Exam.Date] = previousExam
			} else {
				delete(state.exams, variant.Exam.Date)
			}
		}

		if stop {
			return true
		}
	}
	return false
}
