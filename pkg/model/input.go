package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
)

// Session is a single weekly commitment of a course or one of its indexes
type Session struct {
	Type   string
	Group  string
	Day    string
	Time   string // "0930-1020" or "09:30-10:20"
	Venue  string
	Remark string
}

type Exam struct {
	Date     string // YYYY-MM-DD
	Time     string // HH:MM-HH:MM
	Timecode string // Optional 32-character O/X day mask, preferred over Time
}

// Index is one schedule variant of a course
type Index struct {
	Id          string
	Sessions    []Session
	Information string // type^group^day^time^venue^remark;... form of Sessions
}

type Course struct {
	Code              string
	Name              string
	CommonSessions    []Session `mapstructure:"commonSessions"`
	CommonInformation string    `mapstructure:"commonInformation"`
	CommonSchedule    string    `mapstructure:"commonSchedule"` // 192-character O/X string
	Exam              *Exam
	Indexes           []Index
}

type RawCatalog struct {
	Courses []Course
}

// Catalog is the read-only source of course records consumed by the optimizer
type Catalog interface {
	Course(code string) (Course, bool)
	Codes() []string
}

type memoryCatalog struct {
	courses map[string]Course
	codes   []string
}

func NewCatalog(courses []Course) Catalog {
	catalog := &memoryCatalog{
		courses: make(map[string]Course, len(courses)),
	}
	for _, course := range courses {
		code := strings.TrimSpace(course.Code)
		if _, ok := catalog.courses[code]; !ok {
			catalog.codes = append(catalog.codes, code)
		}
		catalog.courses[code] = course
	}
	return catalog
}

func (catalog *memoryCatalog) Course(code string) (Course, bool) {
	course, ok := catalog.courses[strings.TrimSpace(code)]
	return course, ok
}

func (catalog *memoryCatalog) Codes() []string {
	return catalog.codes
}

func CatalogFromJson(file string) (Catalog, error) {
	bytes, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalog file: %w", err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return nil, fmt.Errorf("cannot parse catalog file: %w", err)
	}

	// Index ids may be stored as numbers
	var raw RawCatalog
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &raw,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(inputJson); err != nil {
		return nil, fmt.Errorf("cannot decode catalog: %w", err)
	}
	return NewCatalog(raw.Courses), nil
}

// ParseInformation splits the catalog's "type^group^day^time^venue^remark" groups (separated by
// ';') into sessions. Groups with fewer than four fields carry no day/time and are skipped.
func ParseInformation(information string) []Session {
	groups := lo.Filter(strings.Split(information, ";"), func(group string, _ int) bool {
		return strings.TrimSpace(group) != ""
	})

	sessions := make([]Session, 0, len(groups))
	for _, group := range groups {
		fields := strings.Split(group, "^")
		if len(fields) < 4 {
			continue
		}
		field := func(i int) string {
			if i < len(fields) {
				return strings.TrimSpace(fields[i])
			}
			return ""
		}
		sessions = append(sessions, Session{
			Type:   field(0),
			Group:  field(1),
			Day:    field(2),
			Time:   field(3),
			Venue:  field(4),
			Remark: field(5),
		})
	}
	return sessions
}

// AllSessions merges the structured and the encoded sessions of a course's shared schedule
func (course Course) AllSessions() []Session {
	return append(append([]Session{}, course.CommonSessions...), ParseInformation(course.CommonInformation)...)
}

// AllSessions merges the structured and the encoded sessions of an index
func (index Index) AllSessions() []Session {
	return append(append([]Session{}, index.Sessions...), ParseInformation(index.Information)...)
}
