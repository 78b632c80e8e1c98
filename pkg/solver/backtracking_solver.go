package solver

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/limaJavier/indexoptimizer/pkg/conflict"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

type backtrackingSolver struct {
	options Options
}

func NewBacktrackingSolver(options Options) Solver {
	options.Limit = max(options.Limit, 1)
	return &backtrackingSolver{
		options: options,
	}
}

// searchState carries everything a depth-first search mutates
type searchState struct {
	ctx         context.Context
	rules       conflict.Rules
	examClashes bool
	courses     []model.CourseEntry
	candidates  [][]int // Admissible variant positions per course, in trial order
	chosen      []int   // Variant position per course along the current branch
	limit       int
	maxSteps    uint64
	steps       uint64
	solutions   []Assignment
	err         error
}

func (solver *backtrackingSolver) Solve(
	ctx context.Context,
	problem model.Problem,
	requirements []Requirement,
	constraint timegrid.Mask,
) ([]Assignment, uint64, error) {
	if solver.options.Shuffle && solver.options.Random == nil {
		return nil, 0, fmt.Errorf("shuffle requires a random source: %w", timegrid.ErrInvalidInput)
	}
	if len(problem.Courses) == 0 {
		return nil, 0, nil
	}

	//** Filter candidates once, before searching
	candidates, err := solver.candidates(problem, requirements, constraint)
	if err != nil {
		return nil, 0, err
	}

	//** Search
	rules := conflict.Rules{LectureExempt: solver.options.LectureExempt}
	state := &searchState{
		ctx:         ctx,
		rules:       rules,
		examClashes: solver.options.ExamClashes,
		courses:     problem.Courses,
		candidates:  candidates,
		chosen:      make([]int, len(problem.Courses)),
		limit:       solver.options.Limit,
		maxSteps:    solver.options.MaxSteps,
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
	}
	state.search(0, conflict.NewRunning(rules, constraint))

	return state.solutions, state.steps, state.err
}

// candidates applies include/exclude lists and the busy-time rule to every course
func (solver *backtrackingSolver) candidates(problem model.Problem, requirements []Requirement, constraint timegrid.Mask) ([][]int, error) {
	// A repeated code keeps its first requirement, the same occurrence Materialize keeps
	code := func(requirement Requirement) string { return strings.TrimSpace(requirement.Code) }
	byCode := lo.KeyBy(lo.UniqBy(requirements, code), code)

	candidates := make([][]int, len(problem.Courses))
	for i, course := range problem.Courses {
		requirement := byCode[course.Code]

		ids := lo.Map(course.Variants, func(variant model.Variant, _ int) string { return variant.ID })
		if unknown := lo.Without(lo.Union(requirement.Include, requirement.Exclude), ids...); len(unknown) > 0 {
			return nil, fmt.Errorf("indexes %v do not belong to course %q: %w", unknown, course.Code, timegrid.ErrInvalidInput)
		}

		positions := make([]int, 0, len(course.Variants))
		for position, variant := range course.Variants {
			if lo.Contains(requirement.Exclude, variant.ID) {
				continue
			}
			if len(requirement.Include) > 0 && !lo.Contains(requirement.Include, variant.ID) {
				continue
			}
			if !conflict.Admissible(variant.Full, constraint) {
				continue
			}
			positions = append(positions, position)
		}

		if solver.options.Shuffle {
			solver.options.Random.Shuffle(len(positions), func(a, b int) {
				positions[a], positions[b] = positions[b], positions[a]
			})
		}
		candidates[i] = positions
	}
	return candidates, nil
}

// search returns true once the search must stop, either because enough solutions were found or
// because the budget ran out
func (state *searchState) search(depth int, running conflict.Running) bool {
	if depth == len(state.courses) {
		if state.accept() {
			state.solutions = append(state.solutions, state.assignment())
		}
		return len(state.solutions) >= state.limit
	}

	course := state.courses[depth]
	for _, position := range state.candidates[depth] {
		if state.exhausted() {
			return true
		}

		entry := entryOf(course, course.Variants[position])
		if !running.Fits(entry) || !state.examFits(depth, entry) {
			continue
		}

		state.chosen[depth] = position
		if state.search(depth+1, running.With(entry)) {
			return true
		}
	}
	return false
}

func (state *searchState) exhausted() bool {
	state.steps++
	if state.maxSteps > 0 && state.steps > state.maxSteps {
		state.err = fmt.Errorf("%w: more than %d steps", ErrBudgetExhausted, state.maxSteps)
		return true
	}
	if state.steps%contextCheckInterval == 0 {
		if err := state.ctx.Err(); err != nil {
			state.err = fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
			return true
		}
	}
	return false
}

func (state *searchState) examFits(depth int, entry conflict.Entry) bool {
	if !state.examClashes || entry.Exam == nil {
		return true
	}
	for previous := range depth {
		course := state.courses[previous]
		if conflict.ExamConflict(entry.Exam, course.Variants[state.chosen[previous]].Exam) {
			return false
		}
	}
	return true
}

// accept runs the full pairwise validation, which the running masks alone cannot guarantee
func (state *searchState) accept() bool {
	entries := make([]conflict.Entry, len(state.courses))
	for i, course := range state.courses {
		entries[i] = entryOf(course, course.Variants[state.chosen[i]])
	}
	if state.examClashes && !conflict.ExamsValid(entries) {
		return false
	}
	return state.rules.Valid(entries)
}

func (state *searchState) assignment() Assignment {
	assignment := make(Assignment, len(state.courses))
	for i, course := range state.courses {
		assignment[i] = Pick{Code: course.Code, Index: course.Variants[state.chosen[i]].ID}
	}
	return assignment
}

func (solver *backtrackingSolver) Verify(assignment Assignment, problem model.Problem, constraint timegrid.Mask) bool {
	if len(assignment) != len(problem.Courses) {
		return false
	}

	entries := make([]conflict.Entry, 0, len(assignment))
	for i, pick := range assignment {
		course := problem.Courses[i]
		if course.Code != pick.Code {
			return false
		}
		position, ok := course.VariantPosition(pick.Index)
		if !ok {
			return false
		}
		variant := course.Variants[position]
		if !conflict.Admissible(variant.Full, constraint) {
			return false
		}
		entries = append(entries, entryOf(course, variant))
	}

	if solver.options.ExamClashes && !conflict.ExamsValid(entries) {
		return false
	}
	return conflict.Rules{LectureExempt: solver.options.LectureExempt}.Valid(entries)
}

func entryOf(course model.CourseEntry, variant model.Variant) conflict.Entry {
	return conflict.Entry{
		Full:    variant.Full,
		Common:  course.Common,
		Lecture: variant.Lecture,
		Exam:    variant.Exam,
	}
}
