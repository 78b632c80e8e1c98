package timegrid

import (
	"fmt"
	"math/bits"
	"strings"
)

const words = (TotalSlots + 63) / 64

// Mask is a 192-bit set of occupied slots. It is a value type: every operation returns a new mask.
// Bit day*32+slot is set when the slot is occupied.
type Mask struct {
	words [words]uint64
}

// Week is the per-day view of a Mask, one 32-bit slot mask per day
type Week [Days]uint32

// Full returns the mask with every slot occupied
func Full() Mask {
	var mask Mask
	for i := range mask.words {
		mask.words[i] = ^uint64(0)
	}
	return mask
}

// Bit returns the mask with only the given bit set
func Bit(index int) (Mask, error) {
	var mask Mask
	if index < 0 || index >= TotalSlots {
		return mask, fmt.Errorf("bit %d: %w", index, ErrOutOfRange)
	}
	mask.words[index/64] = 1 << (index % 64)
	return mask, nil
}

// ParseMask reads a 192-character string of 'O' (free) and 'X' (occupied). An empty string is
// the empty mask.
func ParseMask(s string) (Mask, error) {
	var mask Mask
	if s == "" {
		return mask, nil
	}
	if len(s) != TotalSlots {
		return mask, fmt.Errorf("mask must be %d characters long, got %d: %w", TotalSlots, len(s), ErrInvalidInput)
	}
	for i := range len(s) {
		switch s[i] {
		case 'X':
			mask.words[i/64] |= 1 << (i % 64)
		case 'O':
		default:
			return Mask{}, fmt.Errorf("mask character %q at %d: %w", s[i], i, ErrInvalidInput)
		}
	}
	return mask, nil
}

// FromWeek builds a mask from its per-day view
func FromWeek(week Week) Mask {
	var mask Mask
	for day, slots := range week {
		mask.words[day/2] |= uint64(slots) << ((day % 2) * SlotsPerDay)
	}
	return mask
}

func (m Mask) Or(other Mask) Mask {
	for i := range m.words {
		m.words[i] |= other.words[i]
	}
	return m
}

func (m Mask) And(other Mask) Mask {
	for i := range m.words {
		m.words[i] &= other.words[i]
	}
	return m
}

func (m Mask) AndNot(other Mask) Mask {
	for i := range m.words {
		m.words[i] &^= other.words[i]
	}
	return m
}

func (m Mask) IsZero() bool {
	return m.words == [words]uint64{}
}

func (m Mask) Intersects(other Mask) bool {
	for i := range m.words {
		if m.words[i]&other.words[i] != 0 {
			return true
		}
	}
	return false
}

func (m Mask) Has(index int) bool {
	if index < 0 || index >= TotalSlots {
		return false
	}
	return m.words[index/64]&(1<<(index%64)) != 0
}

// Count returns the number of occupied slots
func (m Mask) Count() int {
	count := 0
	for _, word := range m.words {
		count += bits.OnesCount64(word)
	}
	return count
}

// Words exposes the combined integer view, least significant word first
func (m Mask) Words() [words]uint64 {
	return m.words
}

// WithDay returns the mask with the day's slots ORed in
func (m Mask) WithDay(day int, slots uint32) (Mask, error) {
	if day < 0 || day >= Days {
		return m, fmt.Errorf("day %d: %w", day, ErrOutOfRange)
	}
	m.words[day/2] |= uint64(slots) << ((day % 2) * SlotsPerDay)
	return m, nil
}

// Day returns the slot mask of a single day
func (m Mask) Day(day int) uint32 {
	if day < 0 || day >= Days {
		return 0
	}
	return uint32(m.words[day/2] >> ((day % 2) * SlotsPerDay))
}

func (m Mask) Week() Week {
	var week Week
	for day := range Days {
		week[day] = m.Day(day)
	}
	return week
}

// String renders the mask in the same 'O'/'X' form accepted by ParseMask
func (m Mask) String() string {
	var builder strings.Builder
	builder.Grow(TotalSlots)
	for i := range TotalSlots {
		if m.Has(i) {
			builder.WriteByte('X')
		} else {
			builder.WriteByte('O')
		}
	}
	return builder.String()
}
