package solver

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/indexoptimizer/pkg/conflict"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

type block struct {
	day, start, end int
	lecture         bool
}

func variant(t *testing.T, id string, blocks ...block) model.Variant {
	t.Helper()
	result := model.Variant{ID: id}
	for _, b := range blocks {
		mask, err := timegrid.Mask{}.WithDay(b.day, timegrid.SlotRange(b.start, b.end))
		require.NoError(t, err)
		result.Full = result.Full.Or(mask)
		if b.lecture {
			result.Lecture = result.Lecture.Or(mask)
		}
	}
	return result
}

func course(code string, variants ...model.Variant) model.CourseEntry {
	return model.CourseEntry{Code: code, Variants: variants}
}

func indexes(assignment Assignment) []string {
	ids := make([]string, len(assignment))
	for i, pick := range assignment {
		ids[i] = pick.Index
	}
	return ids
}

// twoCourses has two conflict-free combinations: A1 with B2 and A2 with B1
func twoCourses(t *testing.T) model.Problem {
	return model.Problem{Courses: []model.CourseEntry{
		course("A",
			variant(t, "A1", block{day: 0, start: 0, end: 4}),
			variant(t, "A2", block{day: 1, start: 0, end: 4}),
		),
		course("B",
			variant(t, "B1", block{day: 0, start: 2, end: 6}),
			variant(t, "B2", block{day: 1, start: 2, end: 6}),
		),
	}}
}

func TestBacktrackingSolver(t *testing.T) {
	ctx := context.Background()

	t.Run("Finds every valid combination", func(t *testing.T) {
		//** Arrange
		problem := twoCourses(t)
		solver := NewBacktrackingSolver(Options{Limit: 5})

		//** Act
		solutions, steps, err := solver.Solve(ctx, problem, nil, timegrid.Mask{})

		//** Assert
		require.NoError(t, err)
		require.Len(t, solutions, 2)
		assert.Positive(t, steps)
		for _, solution := range solutions {
			assert.True(t, solver.Verify(solution, problem, timegrid.Mask{}))
		}
		assert.ElementsMatch(t, [][]string{{"A1", "B2"}, {"A2", "B1"}}, [][]string{indexes(solutions[0]), indexes(solutions[1])})
		assert.Equal(t, []Pick{{Code: "A", Index: "A1"}, {Code: "B", Index: "B2"}}, []Pick(solutions[0]), "input order is searched first")
	})

	t.Run("Default limit returns a single solution", func(t *testing.T) {
		solutions, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, twoCourses(t), nil, timegrid.Mask{})

		require.NoError(t, err)
		assert.Len(t, solutions, 1)
	})

	t.Run("Busy time removes candidates", func(t *testing.T) {
		busy, err := timegrid.Mask{}.WithDay(0, timegrid.SlotRange(0, 1))
		require.NoError(t, err)

		solutions, _, err := NewBacktrackingSolver(Options{Limit: 5}).Solve(ctx, twoCourses(t), nil, busy)

		require.NoError(t, err)
		require.Len(t, solutions, 1)
		assert.Equal(t, []string{"A2", "B1"}, indexes(solutions[0]))
	})

	t.Run("Full busy mask yields nothing", func(t *testing.T) {
		solutions, _, err := NewBacktrackingSolver(Options{Limit: 5}).Solve(ctx, twoCourses(t), nil, timegrid.Full())

		require.NoError(t, err)
		assert.Empty(t, solutions)
	})

	t.Run("Empty variants are refused once busy time is declared", func(t *testing.T) {
		problem := model.Problem{Courses: []model.CourseEntry{course("A", variant(t, "A1"))}}
		busy, err := timegrid.Mask{}.WithDay(5, timegrid.SlotRange(0, 1))
		require.NoError(t, err)

		free, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, problem, nil, timegrid.Mask{})
		require.NoError(t, err)
		busySolutions, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, problem, nil, busy)
		require.NoError(t, err)

		assert.Len(t, free, 1)
		assert.Empty(t, busySolutions)
	})

	t.Run("Include and exclude lists", func(t *testing.T) {
		solver := NewBacktrackingSolver(Options{Limit: 5})

		included, _, err := solver.Solve(ctx, twoCourses(t), []Requirement{{Code: "A", Include: []string{"A2"}}}, timegrid.Mask{})
		require.NoError(t, err)
		require.Len(t, included, 1)
		assert.Equal(t, []string{"A2", "B1"}, indexes(included[0]))

		// exclude wins over include
		excluded, _, err := solver.Solve(ctx, twoCourses(t), []Requirement{{Code: "A", Include: []string{"A2"}, Exclude: []string{"A2"}}}, timegrid.Mask{})
		require.NoError(t, err)
		assert.Empty(t, excluded)
	})

	t.Run("Foreign index ids are rejected", func(t *testing.T) {
		_, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, twoCourses(t), []Requirement{{Code: "B", Include: []string{"A1"}}}, timegrid.Mask{})

		assert.ErrorIs(t, err, timegrid.ErrInvalidInput)
	})

	t.Run("Shuffle requires a random source", func(t *testing.T) {
		_, _, err := NewBacktrackingSolver(Options{Shuffle: true}).Solve(ctx, twoCourses(t), nil, timegrid.Mask{})

		assert.ErrorIs(t, err, timegrid.ErrInvalidInput)
	})

	t.Run("No courses yields no solutions", func(t *testing.T) {
		solutions, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, model.Problem{}, nil, timegrid.Mask{})

		require.NoError(t, err)
		assert.Empty(t, solutions)
	})
}

func TestLectureExemption(t *testing.T) {
	ctx := context.Background()
	problem := model.Problem{Courses: []model.CourseEntry{
		course("A", variant(t, "A1", block{day: 2, start: 0, end: 4, lecture: true}, block{day: 3, start: 0, end: 2})),
		course("B", variant(t, "B1", block{day: 2, start: 2, end: 6, lecture: true}, block{day: 3, start: 4, end: 6})),
	}}

	strict, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, problem, nil, timegrid.Mask{})
	require.NoError(t, err)
	assert.Empty(t, strict)

	exempt, _, err := NewBacktrackingSolver(Options{LectureExempt: true}).Solve(ctx, problem, nil, timegrid.Mask{})
	require.NoError(t, err)
	require.Len(t, exempt, 1)
	assert.Equal(t, []string{"A1", "B1"}, indexes(exempt[0]))

	// busy time over a lecture is never exempt
	busy, err := timegrid.Mask{}.WithDay(2, timegrid.SlotRange(0, 1))
	require.NoError(t, err)
	blocked, _, err := NewBacktrackingSolver(Options{LectureExempt: true}).Solve(ctx, problem, nil, busy)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}

func TestExamClashes(t *testing.T) {
	ctx := context.Background()
	exam := &timegrid.ExamMask{Date: "2023-11-20", Slots: timegrid.SlotRange(2, 6)}
	a := variant(t, "A1", block{day: 0, start: 0, end: 2})
	a.Exam = exam
	b := variant(t, "B1", block{day: 1, start: 0, end: 2})
	b.Exam = exam
	problem := model.Problem{Courses: []model.CourseEntry{course("A", a), course("B", b)}}

	ignored, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, problem, nil, timegrid.Mask{})
	require.NoError(t, err)
	assert.Len(t, ignored, 1)

	checked := NewBacktrackingSolver(Options{ExamClashes: true})
	solutions, _, err := checked.Solve(ctx, problem, nil, timegrid.Mask{})
	require.NoError(t, err)
	assert.Empty(t, solutions)
	assert.False(t, checked.Verify(ignored[0], problem, timegrid.Mask{}))
}

func TestShuffle(t *testing.T) {
	g := NewWithT(t)
	ctx := context.Background()

	//** Arrange
	variants := make([]model.Variant, 0, 8)
	for day := range 4 {
		for slot := range 2 {
			id := string(rune('a'+day)) + string(rune('0'+slot))
			variants = append(variants, variant(t, id, block{day: day, start: slot * 4, end: slot*4 + 4}))
		}
	}
	problem := model.Problem{Courses: []model.CourseEntry{course("A", variants...)}}

	//** Act
	firsts := make(map[string]bool)
	for seed := range int64(20) {
		solver := NewBacktrackingSolver(Options{Shuffle: true, Random: rand.New(rand.NewSource(seed))})
		solutions, _, err := solver.Solve(ctx, problem, nil, timegrid.Mask{})
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(solutions).To(HaveLen(1))
		firsts[solutions[0][0].Index] = true
	}

	//** Assert
	g.Expect(len(firsts)).To(BeNumerically(">", 1))

	// same seed, same order
	first, _, _ := NewBacktrackingSolver(Options{Shuffle: true, Limit: 8, Random: rand.New(rand.NewSource(7))}).Solve(ctx, problem, nil, timegrid.Mask{})
	second, _, _ := NewBacktrackingSolver(Options{Shuffle: true, Limit: 8, Random: rand.New(rand.NewSource(7))}).Solve(ctx, problem, nil, timegrid.Mask{})
	g.Expect(first).To(Equal(second))
	g.Expect(first).To(HaveLen(8))
}

func TestBudget(t *testing.T) {
	// Deep enough that a handful of steps cannot reach a complete assignment
	courses := make([]model.CourseEntry, 0, 12)
	for i := range 12 {
		courses = append(courses, course(
			strings.Repeat("C", i+1),
			variant(t, "x", block{day: 0, start: 0, end: 1}),
			variant(t, "y", block{day: 1, start: 0, end: 1}),
			variant(t, "z", block{day: i % 6, start: i + 2, end: i + 3}),
		))
	}
	problem := model.Problem{Courses: courses}

	t.Run("Step budget", func(t *testing.T) {
		g := NewWithT(t)
		solutions, steps, err := NewBacktrackingSolver(Options{Limit: 50, MaxSteps: 10}).Solve(context.Background(), problem, nil, timegrid.Mask{})

		g.Expect(err).To(MatchError(ErrBudgetExhausted))
		g.Expect(steps).To(BeNumerically("==", 11))
		g.Expect(len(solutions)).To(BeNumerically("<", 50))
	})

	t.Run("Cancelled context", func(t *testing.T) {
		g := NewWithT(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, _, err := NewBacktrackingSolver(Options{}).Solve(ctx, problem, nil, timegrid.Mask{})

		g.Expect(err).To(MatchError(ErrBudgetExhausted))
		g.Expect(err).To(MatchError(context.Canceled))
	})
}

func TestSolutionsNeverConflict(t *testing.T) {
	g := NewWithT(t)
	random := rand.New(rand.NewSource(42))

	// Random problems over a narrow grid so that conflicts are common
	for trial := range 30 {
		courses := make([]model.CourseEntry, 0, 4)
		for c := range 4 {
			variants := make([]model.Variant, 0, 4)
			for v := range 4 {
				day := random.Intn(2)
				start := random.Intn(8)
				variants = append(variants, variant(t, string(rune('a'+v)), block{day: day, start: start, end: start + 1 + random.Intn(3), lecture: random.Intn(2) == 0}))
			}
			courses = append(courses, course(string(rune('A'+c)), variants...))
		}
		problem := model.Problem{Courses: courses}
		exempt := trial%2 == 0

		solver := NewBacktrackingSolver(Options{Limit: 50, LectureExempt: exempt})
		solutions, _, err := solver.Solve(context.Background(), problem, nil, timegrid.Mask{})
		g.Expect(err).NotTo(HaveOccurred())

		for _, solution := range solutions {
			entries := make([]conflict.Entry, len(solution))
			for i, pick := range solution {
				position, ok := problem.Courses[i].VariantPosition(pick.Index)
				g.Expect(ok).To(BeTrue())
				v := problem.Courses[i].Variants[position]
				entries[i] = conflict.Entry{Full: v.Full, Lecture: v.Lecture}
			}
			g.Expect(conflict.Rules{LectureExempt: exempt}.Valid(entries)).To(BeTrue())
		}
	}
}

func TestEnumerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Lists every valid combination", func(t *testing.T) {
		enumeration, _, err := NewEnumerator(0).Enumerate(ctx, twoCourses(t))

		require.NoError(t, err)
		assert.Equal(t, 2, enumeration.TotalSchedules)
		assert.Equal(t, [][]string{{"A1", "B2"}, {"A2", "B1"}}, enumeration.Schedules)
	})

	t.Run("Stops at the threshold", func(t *testing.T) {
		problem := model.Problem{Courses: []model.CourseEntry{
			course("A", variant(t, "A1", block{day: 0, start: 0, end: 1}), variant(t, "A2", block{day: 0, start: 1, end: 2})),
			course("B", variant(t, "B1", block{day: 1, start: 0, end: 1}), variant(t, "B2", block{day: 1, start: 1, end: 2})),
		}}

		all, _, err := NewEnumerator(0).Enumerate(ctx, problem)
		require.NoError(t, err)
		capped, _, err := NewEnumerator(3).Enumerate(ctx, problem)
		require.NoError(t, err)

		assert.Equal(t, 4, all.TotalSchedules)
		assert.Equal(t, 3, capped.TotalSchedules)
		assert.Equal(t, all.Schedules[:3], capped.Schedules)
	})

	t.Run("Same-date exams clash", func(t *testing.T) {
		a := variant(t, "A1", block{day: 0, start: 0, end: 1})
		a.Exam = &timegrid.ExamMask{Date: "2023-11-20", Slots: timegrid.SlotRange(2, 6)}
		b1 := variant(t, "B1", block{day: 1, start: 0, end: 1})
		b1.Exam = &timegrid.ExamMask{Date: "2023-11-20", Slots: timegrid.SlotRange(4, 8)}
		b2 := variant(t, "B2", block{day: 1, start: 0, end: 1})
		b2.Exam = &timegrid.ExamMask{Date: "2023-11-21", Slots: timegrid.SlotRange(4, 8)}
		problem := model.Problem{Courses: []model.CourseEntry{course("A", a), course("B", b1, b2)}}

		enumeration, _, err := NewEnumerator(0).Enumerate(ctx, problem)

		require.NoError(t, err)
		assert.Equal(t, [][]string{{"A1", "B2"}}, enumeration.Schedules)
	})

	t.Run("Empty problem", func(t *testing.T) {
		enumeration, steps, err := NewEnumerator(0).Enumerate(ctx, model.Problem{})

		require.NoError(t, err)
		assert.Zero(t, steps)
		assert.Zero(t, enumeration.TotalSchedules)
		assert.NotNil(t, enumeration.Schedules)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, _, err := NewEnumerator(0).Enumerate(cancelled, twoCourses(t))

		assert.ErrorIs(t, err, ErrBudgetExhausted)
	})
}
