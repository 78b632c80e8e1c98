package solver

import (
	"context"
	"errors"
	"math/rand"

	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

// Number of search steps between two context checks
const contextCheckInterval = 1024

var ErrBudgetExhausted = errors.New("search exhausted its budget")

// Requirement restricts which indexes of a course may be chosen. An empty Include allows every
// index; Exclude always wins over Include.
type Requirement struct {
	Code    string
	Include []string
	Exclude []string
}

type Pick struct {
	Code  string `json:"code" csv:"code"`
	Index string `json:"index" csv:"index"`
}

// Assignment holds one pick per course, in request order
type Assignment []Pick

type Options struct {
	LectureExempt bool       // Tolerate lecture-vs-lecture overlaps
	ExamClashes   bool       // Also refuse assignments whose exams overlap
	Shuffle       bool       // Randomize candidate order per course before searching
	Random        *rand.Rand // Required when Shuffle is set
	Limit         int        // Maximum number of solutions, at least 1
	MaxSteps      uint64     // Maximum number of candidate trials, 0 for unbounded
}

type Solver interface {
	// Solve returns up to Limit conflict-free assignments of the problem's courses together with
	// the number of candidate trials it took. When the budget runs out the solutions found so far
	// are returned along with ErrBudgetExhausted.
	Solve(
		ctx context.Context,
		problem model.Problem,
		requirements []Requirement,
		constraint timegrid.Mask,
	) (solutions []Assignment, steps uint64, err error)

	// Verify re-checks a complete assignment against the problem, the busy time and the rules
	Verify(assignment Assignment, problem model.Problem, constraint timegrid.Mask) bool
}

type Enumeration struct {
	TotalSchedules int        `json:"total_schedules"`
	Courses        []string   `json:"courses"`   // Codes of the enumerated courses
	Schedules      [][]string `json:"schedules"` // One index id per course, in Courses order
}

type Enumerator interface {
	// Enumerate lists every conflict-free combination of indexes, ignoring personal restrictions,
	// until the threshold is reached
	Enumerate(ctx context.Context, problem model.Problem) (enumeration Enumeration, steps uint64, err error)
}
