// Package optimizer is the boundary between callers and the search core: it validates requests,
// materializes the requested courses once and runs either search strategy under the configured
// budget.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/limaJavier/indexoptimizer/internal/config"
	"github.com/limaJavier/indexoptimizer/internal/metrics"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/solver"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

const (
	ModeSolve     = "solve"
	ModeEnumerate = "enumerate"
)

var ErrInvalidRequest = errors.New("invalid request")

type Service struct {
	catalog   model.Catalog
	config    config.SearchConfig
	policy    model.UnknownCoursePolicy
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func NewService(
	catalog model.Catalog,
	cfg config.SearchConfig,
	validate *validator.Validate,
	logger *zap.Logger,
	metrics *metrics.Metrics,
) (*Service, error) {
	policy, err := model.ParseUnknownCoursePolicy(cfg.UnknownCourses)
	if err != nil {
		return nil, err
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := registerValidations(validate); err != nil {
		return nil, err
	}

	return &Service{
		catalog:   catalog,
		config:    cfg,
		policy:    policy,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

// Optimize returns up to the requested number of conflict-free index combinations, never nil.
// When the search budget runs out, the combinations found so far come back together with
// solver.ErrBudgetExhausted.
func (s *Service) Optimize(ctx context.Context, request Request) ([]solver.Assignment, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("run", uuid.NewString()), zap.String("mode", ModeSolve))

	if err := s.validator.Struct(request); err != nil {
		s.metrics.ObserveRun(ModeSolve, metrics.OutcomeInvalid, time.Since(start), 0, 0)
		return []solver.Assignment{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	//** Prepare
	busy, err := timegrid.ParseMask(request.Occupied)
	if err != nil {
		s.metrics.ObserveRun(ModeSolve, metrics.OutcomeInvalid, time.Since(start), 0, 0)
		return []solver.Assignment{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	problem, err := s.materialize(logger, request.Codes())
	if err != nil {
		s.metrics.ObserveRun(ModeSolve, metrics.OutcomeInvalid, time.Since(start), 0, 0)
		return []solver.Assignment{}, err
	}
	for _, course := range problem.Courses {
		if !course.Fixed.IsZero() && course.Fixed.Intersects(busy) {
			logger.Debug("every index of the course collides with the busy time", zap.String("course", course.Code))
		}
	}

	options := solver.Options{
		LectureExempt: request.IgnoreLectureClashes,
		ExamClashes:   request.CheckExamClashes,
		Shuffle:       request.Shuffle,
		Limit:         s.limit(logger, request.Limit),
		MaxSteps:      s.config.MaxSteps,
	}
	var seed int64
	if request.Shuffle {
		seed = time.Now().UnixNano()
		if request.Seed != nil {
			seed = *request.Seed
		}
		options.Random = rand.New(rand.NewSource(seed))
	}

	//** Search
	ctx, cancel := s.budget(ctx)
	defer cancel()
	solutions, steps, err := solver.NewBacktrackingSolver(options).Solve(ctx, problem, request.requirements(), busy)
	if solutions == nil {
		solutions = []solver.Assignment{}
	}

	outcome := outcomeOf(err, len(solutions))
	duration := time.Since(start)
	s.metrics.ObserveRun(ModeSolve, outcome, duration, steps, len(solutions))
	logger.Info("optimizer run",
		zap.String("outcome", outcome),
		zap.Int("courses", len(problem.Courses)),
		zap.Int("solutions", len(solutions)),
		zap.Uint64("steps", steps),
		zap.Duration("duration", duration),
		zap.Int64("seed", seed),
	)

	if err != nil && errors.Is(err, timegrid.ErrInvalidInput) {
		return solutions, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return solutions, err
}

// Enumerate lists conflict-free combinations of every index of the given courses up to the
// configured threshold
func (s *Service) Enumerate(ctx context.Context, request EnumerateRequest) (solver.Enumeration, error) {
	start := time.Now()
	logger := s.logger.With(zap.String("run", uuid.NewString()), zap.String("mode", ModeEnumerate))
	empty := solver.Enumeration{Courses: []string{}, Schedules: [][]string{}}

	if err := s.validator.Struct(request); err != nil {
		s.metrics.ObserveRun(ModeEnumerate, metrics.OutcomeInvalid, time.Since(start), 0, 0)
		return empty, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	problem, err := s.materialize(logger, request.Courses)
	if err != nil {
		s.metrics.ObserveRun(ModeEnumerate, metrics.OutcomeInvalid, time.Since(start), 0, 0)
		return empty, err
	}

	ctx, cancel := s.budget(ctx)
	defer cancel()
	enumeration, steps, err := solver.NewEnumerator(s.config.EnumerationThreshold).Enumerate(ctx, problem)

	outcome := outcomeOf(err, enumeration.TotalSchedules)
	duration := time.Since(start)
	s.metrics.ObserveRun(ModeEnumerate, outcome, duration, steps, enumeration.TotalSchedules)
	logger.Info("optimizer run",
		zap.String("outcome", outcome),
		zap.Int("courses", len(problem.Courses)),
		zap.Int("solutions", enumeration.TotalSchedules),
		zap.Uint64("steps", steps),
		zap.Duration("duration", duration),
	)

	return enumeration, err
}

// Problem materializes the given courses the way a run sees them
func (s *Service) Problem(codes []string) (model.Problem, error) {
	return s.materialize(s.logger, codes)
}

// Verify re-checks assignments against the request's busy time and clash rules. The problem is
// materialized once by the caller through Problem and shared by every check. It returns the
// position of the first failing assignment, or -1.
func (s *Service) Verify(request Request, problem model.Problem, solutions []solver.Assignment) (int, error) {
	busy, err := timegrid.ParseMask(request.Occupied)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	verifier := solver.NewBacktrackingSolver(solver.Options{
		LectureExempt: request.IgnoreLectureClashes,
		ExamClashes:   request.CheckExamClashes,
	})
	for i, assignment := range solutions {
		if !verifier.Verify(assignment, problem, busy) {
			return i, nil
		}
	}
	return -1, nil
}

func (s *Service) materialize(logger *zap.Logger, codes []string) (model.Problem, error) {
	problem, err := model.Materialize(s.catalog, codes, s.policy)
	if err != nil {
		if errors.Is(err, model.ErrUnknownCourse) || errors.Is(err, timegrid.ErrInvalidInput) {
			return model.Problem{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return model.Problem{}, err
	}
	for _, code := range problem.Skipped {
		logger.Debug("skipping unknown course", zap.String("course", code))
	}
	return problem, nil
}

func (s *Service) limit(logger *zap.Logger, requested *int) int {
	if requested == nil {
		return s.config.DefaultLimit
	}
	if s.config.MaxLimit > 0 && *requested > s.config.MaxLimit {
		logger.Debug("clipping solution limit", zap.Int("requested", *requested), zap.Int("max", s.config.MaxLimit))
		return s.config.MaxLimit
	}
	return *requested
}

func (s *Service) budget(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.Timeout)
}

func outcomeOf(err error, solutions int) string {
	switch {
	case errors.Is(err, solver.ErrBudgetExhausted):
		return metrics.OutcomeExhausted
	case err != nil:
		return metrics.OutcomeInvalid
	case solutions == 0:
		return metrics.OutcomeInfeasible
	}
	return metrics.OutcomeSolved
}
