package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/samber/lo"

	"github.com/limaJavier/indexoptimizer/internal/config"
	"github.com/limaJavier/indexoptimizer/internal/metrics"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/optimizer"
	"github.com/limaJavier/indexoptimizer/pkg/solver"
	"github.com/limaJavier/indexoptimizer/pkg/timegrid"
)

type ResultType int

const (
	solved ResultType = iota
	infeasible
	timeout
)

var (
	resultTypes = map[ResultType]string{
		solved:     "solved",
		infeasible: "infeasible",
		timeout:    "timeout",
	}
	sessionTypes = []string{"LEC", "TUT", "LAB", "SEM"}
)

type TestMetadata struct {
	Name    string
	Seed    int64
	Courses int
	Indexes int
	Catalog model.Catalog
}

type BenchmarkResult struct {
	Test      string `csv:"Test"`
	Courses   int    `csv:"Courses"`
	Indexes   int    `csv:"Indexes"`
	Mode      string `csv:"Mode"`
	Solutions int    `csv:"Solutions"`
	Duration  int64  `csv:"Duration(ms)"`
	Result    string `csv:"Result"`
}

func main() {
	coursesPtr := flag.Int("courses", 10, "Largest number of courses per generated instance")
	indexesPtr := flag.Int("indexes", 8, "Number of indexes per generated course")
	seedPtr := flag.Int64("seed", 1, "Seed used to generate the instances")
	limitPtr := flag.Int("limit", 50, "Solution limit of the solve runs")
	timeoutPtr := flag.Duration("timeout", 10*time.Second, "Budget of every run")
	outPtr := flag.String("out", "benchmark_results.csv", "Path to the CSV file with the results")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	cfg.Search.Timeout = *timeoutPtr
	cfg.Search.MaxLimit = max(cfg.Search.MaxLimit, *limitPtr)

	tests := getTests(*seedPtr, *coursesPtr, *indexesPtr)
	results := make([]*BenchmarkResult, 0, 2*len(tests))

	for _, test := range tests {
		service, err := optimizer.NewService(test.Catalog, cfg.Search, nil, nil, metrics.New())
		if err != nil {
			log.Fatalf("cannot build optimizer: %v", err)
		}

		for _, mode := range []string{optimizer.ModeSolve, optimizer.ModeEnumerate} {
			fmt.Printf("Benchmarking test \"%v\" in mode \"%v\"\n", test.Name, mode)
			results = append(results, measure(service, test, mode, *limitPtr))
		}
	}

	toCsv(results, *outPtr)
}

// getTests generates instances of growing size from a single seed
func getTests(seed int64, maxCourses, indexes int) []TestMetadata {
	tests := make([]TestMetadata, 0)
	for courses := 2; courses <= maxCourses; courses += 2 {
		instanceSeed := seed + int64(courses)
		tests = append(tests, TestMetadata{
			Name:    fmt.Sprintf("generated-%d-%d", courses, indexes),
			Seed:    instanceSeed,
			Courses: courses,
			Indexes: indexes,
			Catalog: model.NewCatalog(generateCourses(rand.New(rand.NewSource(instanceSeed)), courses, indexes)),
		})
	}
	return tests
}

// generateCourses builds courses with one shared lecture and one or two own sessions per index
func generateCourses(random *rand.Rand, courses, indexes int) []model.Course {
	result := make([]model.Course, 0, courses)
	for c := range courses {
		course := model.Course{
			Code:           fmt.Sprintf("BM%04d", c+1),
			CommonSessions: []model.Session{randomSession(random, "LEC")},
			Indexes:        make([]model.Index, 0, indexes),
		}
		for i := range indexes {
			sessions := []model.Session{randomSession(random, sessionTypes[1+random.Intn(len(sessionTypes)-1)])}
			if random.Intn(2) == 0 {
				sessions = append(sessions, randomSession(random, sessionTypes[1+random.Intn(len(sessionTypes)-1)]))
			}
			course.Indexes = append(course.Indexes, model.Index{
				Id:       fmt.Sprintf("%d%02d", c+1, i+1),
				Sessions: sessions,
			})
		}
		result = append(result, course)
	}
	return result
}

func randomSession(random *rand.Rand, sessionType string) model.Session {
	start := random.Intn(timegrid.SlotsPerDay - 4)
	end := start + 2 + random.Intn(3)
	return model.Session{
		Type: sessionType,
		Day:  timegrid.DayToken(random.Intn(timegrid.Days - 1)),
		Time: slotTime(start) + "-" + slotTime(end),
	}
}

func slotTime(slot int) string {
	minutes := timegrid.FirstHour*60 + slot*30
	return fmt.Sprintf("%02d%02d", minutes/60, minutes%60)
}

func measure(service *optimizer.Service, test TestMetadata, mode string, limit int) *BenchmarkResult {
	codes := test.Catalog.Codes()
	ctx := context.Background()

	start := time.Now()
	var solutions int
	var err error
	if mode == optimizer.ModeSolve {
		var assignments []solver.Assignment
		assignments, err = service.Optimize(ctx, optimizer.Request{
			Courses: lo.Map(codes, func(code string, _ int) optimizer.CourseRequest { return optimizer.CourseRequest{Code: code} }),
			Limit:   lo.ToPtr(limit),
		})
		solutions = len(assignments)
	} else {
		var enumeration solver.Enumeration
		enumeration, err = service.Enumerate(ctx, optimizer.EnumerateRequest{Courses: codes})
		solutions = enumeration.TotalSchedules
	}
	duration := time.Since(start)

	result, err := resultOf(err, solutions)
	if err != nil {
		log.Fatalf("an error occurred while benchmarking test \"%v\" in mode \"%v\": %v", test.Name, mode, err)
	}

	return &BenchmarkResult{
		Test:      test.Name,
		Courses:   test.Courses,
		Indexes:   test.Indexes,
		Mode:      mode,
		Solutions: solutions,
		Duration:  duration.Milliseconds(),
		Result:    resultTypes[result],
	}
}

func resultOf(err error, solutions int) (ResultType, error) {
	switch {
	case errors.Is(err, solver.ErrBudgetExhausted):
		return timeout, nil
	case err != nil:
		return 0, err
	case solutions == 0:
		return infeasible, nil
	}
	return solved, nil
}

func toCsv(results []*BenchmarkResult, path string) {
	file, err := os.Create(path)
	if err != nil {
		log.Panicf("cannot create CSV file: %v", err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&results, file); err != nil {
		log.Panicf("cannot write CSV records: %v", err)
	}
}
