package model

import (
	"strings"

	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

type VariantMask struct {
	Full    timegrid.Mask
	Lecture timegrid.Mask // Subset of Full holding lecture sessions only
	Exam    *timegrid.ExamMask
}

// IsLecture reports whether the session counts as a lecture for the lecture-clash exemption
func (session Session) IsLecture() bool {
	return strings.Contains(strings.ToUpper(session.Type), "LEC")
}

// SessionsMask ORs the slots of every resolvable session. Sessions with an unknown day token or a
// malformed time range contribute nothing.
func SessionsMask(sessions []Session) (full, lecture timegrid.Mask) {
	for _, session := range sessions {
		day, ok := timegrid.DayIndex(session.Day)
		if !ok {
			continue
		}
		start, end, err := timegrid.ParseRange(session.Time)
		if err != nil {
			continue
		}

		next, err := full.WithDay(day, timegrid.SlotRange(start, end))
		if err != nil {
			continue
		}
		full = next
		if session.IsLecture() {
			lecture, _ = lecture.WithDay(day, timegrid.SlotRange(start, end))
		}
	}
	return full, lecture
}

// BuildVariantMask combines a course's shared sessions with one index's own sessions. A malformed
// exam record is treated like a missing one.
func BuildVariantMask(common, own []Session, exam *Exam) VariantMask {
	commonFull, commonLecture := SessionsMask(common)
	ownFull, ownLecture := SessionsMask(own)

	return VariantMask{
		Full:    commonFull.Or(ownFull),
		Lecture: commonLecture.Or(ownLecture),
		Exam:    examMask(exam),
	}
}

func examMask(exam *Exam) *timegrid.ExamMask {
	if exam == nil {
		return nil
	}
	mask, err := timegrid.NewExamMask(exam.Date, exam.Time, exam.Timecode)
	if err != nil {
		return nil
	}
	return mask
}
