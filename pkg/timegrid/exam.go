package timegrid

import (
	"fmt"
	"strings"
)

// ExamMask is a single day's slot mask tied to a calendar date
type ExamMask struct {
	Date  string
	Slots uint32
}

// Clashes reports whether two exams take place on the same date and share a slot
func (exam ExamMask) Clashes(other ExamMask) bool {
	return exam.Date == other.Date && exam.Slots&other.Slots != 0
}

// ParseDayMask reads a 32-character 'O'/'X' string covering one day
func ParseDayMask(s string) (uint32, error) {
	if len(s) != SlotsPerDay {
		return 0, fmt.Errorf("day mask must be %d characters long, got %d: %w", SlotsPerDay, len(s), ErrInvalidInput)
	}
	var mask uint32
	for i := range len(s) {
		switch s[i] {
		case 'X':
			mask |= 1 << i
		case 'O':
		default:
			return 0, fmt.Errorf("day mask character %q at %d: %w", s[i], i, ErrInvalidInput)
		}
	}
	return mask, nil
}

// NewExamMask builds the exam mask from a date and either a "HH:MM-HH:MM" window or a 32-character
// timecode. The timecode wins when both are present.
func NewExamMask(date, window, timecode string) (*ExamMask, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, nil
	}

	if timecode != "" {
		slots, err := ParseDayMask(timecode)
		if err != nil {
			return nil, err
		}
		return &ExamMask{Date: date, Slots: slots}, nil
	}

	if strings.TrimSpace(window) == "" {
		return nil, nil
	}
	start, end, err := ParseRange(window)
	if err != nil {
		return nil, err
	}
	return &ExamMask{Date: date, Slots: SlotRange(start, end)}, nil
}
