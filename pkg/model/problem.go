package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

var ErrUnknownCourse = errors.New("unknown course")

// UnknownCoursePolicy decides what happens to requested codes that the catalog does not know
type UnknownCoursePolicy int

const (
	SkipUnknown UnknownCoursePolicy = iota
	RejectUnknown
)

func ParseUnknownCoursePolicy(policy string) (UnknownCoursePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", "skip":
		return SkipUnknown, nil
	case "reject":
		return RejectUnknown, nil
	}
	return SkipUnknown, fmt.Errorf("unknown course policy %q: %w", policy, timegrid.ErrInvalidInput)
}

type Variant struct {
	ID      string
	Full    timegrid.Mask
	Lecture timegrid.Mask
	Exam    *timegrid.ExamMask
}

type CourseEntry struct {
	Code          string
	Common        timegrid.Mask // Shared by every variant, already folded into each Variant.Full
	CommonLecture timegrid.Mask
	Fixed         timegrid.Mask // Intersection of every variant's Full mask
	Exam          *timegrid.ExamMask
	Variants      []Variant
}

// VariantPosition returns the arena position of the variant with the given id
func (entry CourseEntry) VariantPosition(id string) (int, bool) {
	_, position, ok := lo.FindIndexOf(entry.Variants, func(variant Variant) bool {
		return variant.ID == id
	})
	return position, ok
}

// Problem is the in-memory arena a search runs on. Courses keep the order in which they were
// requested, and variants are addressed by their position inside their course.
type Problem struct {
	Courses []CourseEntry
	Skipped []string // Requested codes the catalog does not know (SkipUnknown only)
}

// Materialize fetches every requested course once and converts it into masks. Duplicate codes
// are collapsed onto their first occurrence.
func Materialize(catalog Catalog, codes []string, policy UnknownCoursePolicy) (Problem, error) {
	problem := Problem{}

	codes = lo.Uniq(lo.Map(codes, func(code string, _ int) string { return strings.TrimSpace(code) }))
	for _, code := range codes {
		course, ok := catalog.Course(code)
		if !ok {
			if policy == RejectUnknown {
				return Problem{}, fmt.Errorf("course %q: %w", code, ErrUnknownCourse)
			}
			problem.Skipped = append(problem.Skipped, code)
			continue
		}

		entry, err := newCourseEntry(code, course)
		if err != nil {
			return Problem{}, err
		}
		problem.Courses = append(problem.Courses, entry)
	}

	return problem, nil
}

func newCourseEntry(code string, course Course) (CourseEntry, error) {
	commonSessions := course.AllSessions()
	scheduleMask, err := timegrid.ParseMask(course.CommonSchedule)
	if err != nil {
		return CourseEntry{}, fmt.Errorf("common schedule of course %q: %w", code, err)
	}

	sessionsFull, commonLecture := SessionsMask(commonSessions)
	entry := CourseEntry{
		Code:          code,
		Common:        sessionsFull.Or(scheduleMask),
		CommonLecture: commonLecture,
		Exam:          examMask(course.Exam),
		Variants:      make([]Variant, 0, len(course.Indexes)),
	}

	for _, index := range course.Indexes {
		masks := BuildVariantMask(commonSessions, index.AllSessions(), course.Exam)
		entry.Variants = append(entry.Variants, Variant{
			ID:      strings.TrimSpace(index.Id),
			Full:    masks.Full.Or(scheduleMask),
			Lecture: masks.Lecture,
			Exam:    masks.Exam,
		})
	}

	if len(entry.Variants) > 0 {
		entry.Fixed = lo.Reduce(entry.Variants[1:], func(fixed timegrid.Mask, variant Variant, _ int) timegrid.Mask {
			return fixed.And(variant.Full)
		}, entry.Variants[0].Full)
	}

	return entry, nil
}
