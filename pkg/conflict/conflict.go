// Package conflict decides whether chosen course variants overlap in time. Both search strategies
// share these rules: the backtracker works on combined 192-bit masks, the enumerator on the
// per-day view of the same masks.
package conflict

import (
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

// Entry is a chosen variant as seen by the rules
type Entry struct {
	Full    timegrid.Mask // Own sessions plus the course's shared sessions
	Common  timegrid.Mask // Shared sessions of the course
	Lecture timegrid.Mask // Lecture-type bits of Full
	Exam    *timegrid.ExamMask
}

func (entry Entry) nonLecture() timegrid.Mask {
	return entry.Full.AndNot(entry.Lecture)
}

type Rules struct {
	LectureExempt bool // Tolerate lecture-vs-lecture overlaps
}

// Pairwise reports whether a and b clash under the base (or lecture-exempt) rule or under the
// common-schedule rule in either direction. The exemption reaches the common-schedule rule too:
// shared sessions are mostly lectures, so exempting only the base rule would still reject
// lecture-vs-lecture overlaps.
func (rules Rules) Pairwise(a, b Entry) bool {
	return rules.overlaps(a.Full, a.Lecture, b) ||
		rules.overlaps(b.Full, b.Lecture, a) ||
		rules.overlaps(a.Common, a.Lecture, b) ||
		rules.overlaps(b.Common, b.Lecture, a)
}

// overlaps checks the bits of one side (with its lecture part) against the other side's full mask.
// Under the exemption only the non-lecture bits of either side may not meet the other's full mask.
func (rules Rules) overlaps(bits, lecture timegrid.Mask, other Entry) bool {
	if !rules.LectureExempt {
		return bits.Intersects(other.Full)
	}
	return bits.AndNot(lecture).Intersects(other.Full) || bits.Intersects(other.nonLecture())
}

// Valid runs the full pairwise validation over a complete assignment
func (rules Rules) Valid(entries []Entry) bool {
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if rules.Pairwise(entries[i], entries[j]) {
				return false
			}
		}
	}
	return true
}

// ExamsValid reports whether no two entries sit exams on the same date in overlapping slots
func ExamsValid(entries []Entry) bool {
	for i := range entries {
		for j := i + 1; j < len(entries); j++ {
			if ExamConflict(entries[i].Exam, entries[j].Exam) {
				return false
			}
		}
	}
	return true
}

// Admissible reports whether a variant fits the caller's busy time. Once the caller has declared
// any busy time, a variant without a single recorded slot cannot be verified and is refused.
func Admissible(full, constraint timegrid.Mask) bool {
	if !constraint.IsZero() && full.IsZero() {
		return false
	}
	return !full.Intersects(constraint)
}

func WeekConflict(a, b timegrid.Week) bool {
	for day := range a {
		if a[day]&b[day] != 0 {
			return true
		}
	}
	return false
}

func ExamConflict(a, b *timegrid.ExamMask) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Clashes(*b)
}
