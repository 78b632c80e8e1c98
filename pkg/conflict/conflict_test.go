package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

func slots(t *testing.T, day int, start, end int) timegrid.Mask {
	t.Helper()
	mask, err := timegrid.Mask{}.WithDay(day, timegrid.SlotRange(start, end))
	require.NoError(t, err)
	return mask
}

func TestBaseRule(t *testing.T) {
	rules := Rules{}
	a := Entry{Full: slots(t, 0, 0, 4)}
	b := Entry{Full: slots(t, 0, 3, 6)}
	c := Entry{Full: slots(t, 0, 4, 6)}

	assert.True(t, rules.Pairwise(a, b))
	assert.True(t, rules.Pairwise(b, a))
	assert.False(t, rules.Pairwise(a, c), "half-open ranges touching at a boundary do not clash")
	assert.False(t, rules.Valid([]Entry{a, b, c}))
	assert.True(t, rules.Valid([]Entry{a, c}))
	assert.True(t, rules.Valid(nil))
}

func TestCommonRuleCatchesUnfoldedCommons(t *testing.T) {
	// A common schedule that was not folded into the full mask still clashes
	rules := Rules{}
	a := Entry{Full: slots(t, 1, 0, 2), Common: slots(t, 2, 0, 2)}
	b := Entry{Full: slots(t, 2, 1, 3)}

	assert.False(t, a.Full.Intersects(b.Full))
	assert.True(t, rules.Pairwise(a, b))
	assert.True(t, rules.Pairwise(b, a))
	assert.True(t, Rules{LectureExempt: true}.Pairwise(a, b))
}

func TestLectureExemption(t *testing.T) {
	lectureA := slots(t, 0, 0, 4)
	lectureB := slots(t, 0, 2, 6)
	a := Entry{Full: lectureA.Or(slots(t, 1, 0, 2)), Common: lectureA, Lecture: lectureA}
	b := Entry{Full: lectureB.Or(slots(t, 1, 4, 6)), Common: lectureB, Lecture: lectureB}

	assert.True(t, Rules{}.Pairwise(a, b))
	assert.False(t, Rules{LectureExempt: true}.Pairwise(a, b), "lecture vs lecture is tolerated")

	// lecture vs tutorial is never tolerated
	tutorial := Entry{Full: slots(t, 0, 3, 4)}
	assert.True(t, Rules{LectureExempt: true}.Pairwise(a, tutorial))
	assert.True(t, Rules{LectureExempt: true}.Pairwise(tutorial, a))

	// tutorial vs tutorial is never tolerated
	other := Entry{Full: slots(t, 1, 1, 2)}
	assert.True(t, Rules{LectureExempt: true}.Pairwise(a, other))
}

func TestAdmissible(t *testing.T) {
	busy := slots(t, 3, 0, 8)

	assert.True(t, Admissible(slots(t, 3, 8, 10), busy))
	assert.False(t, Admissible(slots(t, 3, 7, 10), busy))
	assert.False(t, Admissible(timegrid.Mask{}, busy), "empty schedule is unverifiable against busy time")
	assert.True(t, Admissible(timegrid.Mask{}, timegrid.Mask{}))
	assert.False(t, Admissible(slots(t, 5, 0, 1), timegrid.Full()))
}

func TestRunning(t *testing.T) {
	busy := slots(t, 4, 0, 2)
	lectureA := slots(t, 0, 0, 4)
	a := Entry{Full: lectureA, Lecture: lectureA}
	overlappingLecture := Entry{Full: slots(t, 0, 2, 4), Lecture: slots(t, 0, 2, 4)}
	overlappingTutorial := Entry{Full: slots(t, 0, 2, 4)}
	onBusyLecture := Entry{Full: slots(t, 4, 0, 1), Lecture: slots(t, 4, 0, 1)}

	strict := NewRunning(Rules{}, busy).With(a)
	assert.False(t, strict.Fits(overlappingLecture))
	assert.False(t, strict.Fits(onBusyLecture))
	assert.True(t, strict.Fits(Entry{Full: slots(t, 2, 0, 4)}))

	exempt := NewRunning(Rules{LectureExempt: true}, busy).With(a)
	assert.True(t, exempt.Fits(overlappingLecture))
	assert.False(t, exempt.Fits(overlappingTutorial))
	assert.False(t, exempt.Fits(onBusyLecture), "busy time is never exempt")
}

func TestWeekAndExamConflicts(t *testing.T) {
	assert.True(t, WeekConflict(timegrid.Week{0, 0b10}, timegrid.Week{0, 0b11}))
	assert.False(t, WeekConflict(timegrid.Week{0b1}, timegrid.Week{0, 0b1}))

	morning := &timegrid.ExamMask{Date: "2023-11-20", Slots: timegrid.SlotRange(2, 6)}
	overlapping := &timegrid.ExamMask{Date: "2023-11-20", Slots: timegrid.SlotRange(5, 8)}
	otherDay := &timegrid.ExamMask{Date: "2023-11-21", Slots: timegrid.SlotRange(2, 6)}

	assert.True(t, ExamConflict(morning, overlapping))
	assert.False(t, ExamConflict(morning, otherDay))
	assert.False(t, ExamConflict(morning, nil))
	assert.False(t, ExamsValid([]Entry{{Exam: morning}, {Exam: otherDay}, {Exam: overlapping}}))
	assert.True(t, ExamsValid([]Entry{{Exam: morning}, {Exam: otherDay}, {}}))
}
