package optimizer

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"

	"github.com/limaJavier/indexoptimizer/pkg/solver"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

var indexIdPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

type CourseRequest struct {
	Code    string   `json:"code" mapstructure:"code" validate:"required"`
	Include []string `json:"include,omitempty" mapstructure:"include" validate:"dive,index_id"`
	Exclude []string `json:"exclude,omitempty" mapstructure:"exclude" validate:"dive,index_id"`
}

// Request asks for up to Limit conflict-free index combinations
type Request struct {
	Courses              []CourseRequest `json:"courses" mapstructure:"courses" validate:"required,min=1,dive"`
	Occupied             string          `json:"occupied,omitempty" mapstructure:"occupied" validate:"omitempty,oxmask"`
	IgnoreLectureClashes bool            `json:"ignore_lecture_clashes" mapstructure:"ignore_lecture_clashes"`
	Shuffle              bool            `json:"shuffle" mapstructure:"shuffle"`
	Limit                *int            `json:"limit,omitempty" mapstructure:"limit" validate:"omitempty,min=1"`
	CheckExamClashes     bool            `json:"check_exam_clashes" mapstructure:"check_exam_clashes"`
	Seed                 *int64          `json:"seed,omitempty" mapstructure:"seed"`
}

// EnumerateRequest asks for every conflict-free combination of the given courses
type EnumerateRequest struct {
	Courses []string `json:"courses" mapstructure:"courses" validate:"required,min=1,dive,required"`
}

// Codes lists the requested course codes in request order
func (request Request) Codes() []string {
	return lo.Map(request.Courses, func(course CourseRequest, _ int) string { return course.Code })
}

func (request Request) requirements() []solver.Requirement {
	return lo.Map(request.Courses, func(course CourseRequest, _ int) solver.Requirement {
		return solver.Requirement{
			Code:    course.Code,
			Include: course.Include,
			Exclude: course.Exclude,
		}
	})
}

func RequestFromJson(file string) (Request, error) {
	return decodeJsonFile[Request](file)
}

func EnumerateRequestFromJson(file string) (EnumerateRequest, error) {
	return decodeJsonFile[EnumerateRequest](file)
}

// DecodeRequest converts a generic JSON document into a Request. Course entries may also be plain
// code strings.
func DecodeRequest(input map[string]any) (Request, error) {
	var request Request
	if err := decode(input, &request); err != nil {
		return Request{}, err
	}
	return request, nil
}

func decodeJsonFile[T any](file string) (T, error) {
	var result T
	bytes, err := os.ReadFile(file)
	if err != nil {
		return result, fmt.Errorf("cannot read request file: %w", err)
	}
	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		return result, fmt.Errorf("cannot parse request file: %w: %w", ErrInvalidRequest, err)
	}
	if err := decode(inputJson, &result); err != nil {
		return result, err
	}
	return result, nil
}

func decode(input map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: courseCodeHook,
		Result:     result,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(input); err != nil {
		return fmt.Errorf("cannot decode request: %w: %w", ErrInvalidRequest, err)
	}
	return nil
}

// courseCodeHook lets "courses": ["SC2001"] stand for "courses": [{"code": "SC2001"}]
func courseCodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf(CourseRequest{}) {
		return map[string]any{"code": data}, nil
	}
	return data, nil
}

func registerValidations(validate *validator.Validate) error {
	if err := validate.RegisterValidation("oxmask", func(fl validator.FieldLevel) bool {
		_, err := timegrid.ParseMask(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("cannot register oxmask validation: %w", err)
	}
	if err := validate.RegisterValidation("index_id", func(fl validator.FieldLevel) bool {
		return indexIdPattern.MatchString(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("cannot register index_id validation: %w", err)
	}
	return nil
}
