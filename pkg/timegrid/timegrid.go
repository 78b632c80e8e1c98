package timegrid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	Days        = 6                  // Monday to Saturday
	SlotsPerDay = 32                 // Half-hour slots from 08:00 to 24:00
	TotalSlots  = Days * SlotsPerDay // 192
	FirstHour   = 8                  // Slot 0 starts at 08:00
)

var (
	ErrOutOfRange   = errors.New("slot out of range")
	ErrInvalidInput = errors.New("invalid input")
)

var dayTokens = map[string]int{
	"MON": 0,
	"TUE": 1,
	"WED": 2,
	"THU": 3,
	"FRI": 4,
	"SAT": 5,
}

// BitIndex returns the position of the (day, slot) pair inside a week mask
func BitIndex(day, slot int) (int, error) {
	if day < 0 || day >= Days || slot < 0 || slot >= SlotsPerDay {
		return 0, fmt.Errorf("day %d, slot %d: %w", day, slot, ErrOutOfRange)
	}
	return day*SlotsPerDay + slot, nil
}

// TimeToSlot converts a "HHMM" or "HH:MM" time into its half-hour slot. Minutes are quantized down
// to the enclosing half-hour, so 09:20 shares slot 2 with 09:00. The result is not clipped:
// times before 08:00 yield negative slots and callers decide how to treat them.
func TimeToSlot(hhmm string) (int, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(hhmm), ":", "")
	if len(digits) != 4 {
		return 0, fmt.Errorf("time %q: %w", hhmm, ErrInvalidInput)
	}

	hour, err := strconv.Atoi(digits[:2])
	if err != nil {
		return 0, fmt.Errorf("time %q: %w", hhmm, ErrInvalidInput)
	}
	minute, err := strconv.Atoi(digits[2:])
	if err != nil || minute < 0 || minute > 59 || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("time %q: %w", hhmm, ErrInvalidInput)
	}

	slot := (hour - FirstHour) * 2
	if minute >= 30 {
		slot++
	}
	return slot, nil
}

// DayIndex maps MON..SAT to 0..5. Any other token (e.g. online or unscheduled sessions) is reported
// as unresolvable so the session contributes no slots
func DayIndex(token string) (int, bool) {
	day, ok := dayTokens[strings.ToUpper(strings.TrimSpace(token))]
	return day, ok
}

// DayToken is the inverse of DayIndex
func DayToken(day int) string {
	for token, index := range dayTokens {
		if index == day {
			return token
		}
	}
	return ""
}

// SlotRange returns the day mask covering the half-open interval [start, end), clipped to the day
func SlotRange(start, end int) uint32 {
	start = max(start, 0)
	end = min(end, SlotsPerDay)
	var mask uint32
	for slot := start; slot < end; slot++ {
		mask |= 1 << slot
	}
	return mask
}

// ParseRange parses a "start-end" time range into its half-open slot interval
func ParseRange(timeRange string) (start, end int, err error) {
	startStr, endStr, found := strings.Cut(strings.TrimSpace(timeRange), "-")
	if !found {
		return 0, 0, fmt.Errorf("time range %q: %w", timeRange, ErrInvalidInput)
	}
	if start, err = TimeToSlot(startStr); err != nil {
		return 0, 0, err
	}
	if end, err = TimeToSlot(endStr); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}
