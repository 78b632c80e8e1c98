package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/limaJavier/indexoptimizer/internal/config"
	"github.com/limaJavier/indexoptimizer/internal/export"
	"github.com/limaJavier/indexoptimizer/internal/logger"
	"github.com/limaJavier/indexoptimizer/internal/metrics"
	"github.com/limaJavier/indexoptimizer/pkg/model"
	"github.com/limaJavier/indexoptimizer/pkg/optimizer"
	"github.com/limaJavier/indexoptimizer/pkg/solver"
)

// Exit codes
const (
	exitFound      = 10
	exitUnverified = 15
	exitNone       = 20
	exitExhausted  = 30
)

var (
	validModes   = []string{optimizer.ModeSolve, optimizer.ModeEnumerate}
	validFormats = []string{"json", "csv", "grid"}
)

func main() {
	// Define arguments
	modePtr := flag.String("mode", optimizer.ModeSolve, `What to compute. Allowed values are:
- "solve" (up to "limit" conflict-free index combinations honoring the request's busy time and index lists) and
- "enumerate" (every conflict-free combination of the requested courses, up to the configured threshold), where "solve" is the default`)
	catalogPtr := flag.String("catalog", "", "Path to the course catalog file")
	requestPtr := flag.String("request", "", "Path to the request file")
	configPtr := flag.String("config", "", "Path to an optional YAML/JSON configuration file; INDEXOPT_* environment variables override it")
	outPtr := flag.String("out", "", "Path to the file where the output will be written; if empty, it'll be written into the Standard Output")
	formatPtr := flag.String("format", "json", "Output format. Allowed values are: \"json\", \"csv\" and \"grid\" (solve mode only), where \"json\" is the default")
	seedPtr := flag.Int64("seed", 0, "Seed for shuffled searches, overriding the request's seed")
	flag.Parse()
	mode := strings.ToLower(*modePtr)
	format := strings.ToLower(*formatPtr)
	seedSet := false
	flag.Visit(func(f *flag.Flag) { seedSet = seedSet || f.Name == "seed" })

	// Validate arguments
	if !slices.Contains(validModes, mode) {
		log.Fatalf("%v is not a valid mode", mode)
	} else if !slices.Contains(validFormats, format) {
		log.Fatalf("%v is not a valid format", format)
	} else if format == "grid" && mode != optimizer.ModeSolve {
		log.Fatal("the grid format is only available in solve mode")
	} else if *catalogPtr == "" {
		log.Fatal("a catalog file must be specified")
	} else if *requestPtr == "" {
		log.Fatal("a request file must be specified")
	}

	// Initialize ambient stack
	cfg, err := config.Load(*configPtr)
	if err != nil {
		log.Fatalf("cannot load configuration: %v", err)
	}
	zapLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("cannot build logger: %v", err)
	}
	m := metrics.New()

	// Extract input
	catalog, err := model.CatalogFromJson(*catalogPtr)
	if err != nil {
		log.Fatalf("cannot parse catalog file: %v", err)
	}
	service, err := optimizer.NewService(catalog, cfg.Search, validator.New(), zapLogger, m)
	if err != nil {
		log.Fatalf("cannot build optimizer: %v", err)
	}

	out := io.Writer(os.Stdout)
	if *outPtr != "" {
		file, err := os.Create(*outPtr)
		if err != nil {
			log.Fatalf("cannot create output file: %v", err)
		}
		out = file
	}

	ctx := context.Background()
	var code int
	if mode == optimizer.ModeSolve {
		request, err := optimizer.RequestFromJson(*requestPtr)
		if err != nil {
			log.Fatalf("cannot parse request file: %v", err)
		}
		if seedSet {
			request.Seed = seedPtr
		}
		code = solve(ctx, service, request, format, out, zapLogger)
	} else {
		request, err := optimizer.EnumerateRequestFromJson(*requestPtr)
		if err != nil {
			log.Fatalf("cannot parse request file: %v", err)
		}
		code = enumerate(ctx, service, request, format, out, zapLogger)
	}

	if cfg.Metrics.Textfile != "" {
		if err := m.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			zapLogger.Error("cannot write metrics textfile", zap.Error(err))
		}
	}

	zapLogger.Sync()
	if file, ok := out.(*os.File); ok && file != os.Stdout {
		file.Close()
	}
	os.Exit(code)
}

func solve(ctx context.Context, service *optimizer.Service, request optimizer.Request, format string, out io.Writer, zapLogger *zap.Logger) int {
	code := exitFound
	solutions, err := service.Optimize(ctx, request)
	if errors.Is(err, solver.ErrBudgetExhausted) {
		zapLogger.Warn("search budget exhausted, returning partial results", zap.Error(err))
		code = exitExhausted
	} else if err != nil {
		log.Fatalf("an error occurred during the search: %v", err)
	}

	// Verify every solution before reporting it
	problem, err := service.Problem(request.Codes())
	if err != nil {
		log.Fatalf("an error occurred while preparing the verification: %v", err)
	}
	failed, err := service.Verify(request, problem, solutions)
	if err != nil || failed >= 0 {
		zapLogger.Error("solution failed verification", zap.Int("solution", failed), zap.Error(err))
		return exitUnverified
	}

	switch format {
	case "csv":
		err = export.WriteSolutionsCSV(out, solutions)
	case "grid":
		err = writeGrids(problem, solutions, out)
	default:
		err = writeJson(out, solutions)
	}
	if err != nil {
		log.Fatalf("an error occurred while writing the output: %v", err)
	}

	if len(solutions) == 0 && code == exitFound {
		return exitNone
	}
	return code
}

func enumerate(ctx context.Context, service *optimizer.Service, request optimizer.EnumerateRequest, format string, out io.Writer, zapLogger *zap.Logger) int {
	code := exitFound
	enumeration, err := service.Enumerate(ctx, request)
	if errors.Is(err, solver.ErrBudgetExhausted) {
		zapLogger.Warn("enumeration budget exhausted, returning partial results", zap.Error(err))
		code = exitExhausted
	} else if err != nil {
		log.Fatalf("an error occurred during the enumeration: %v", err)
	}

	if format == "csv" {
		err = export.WriteEnumerationCSV(out, enumeration)
	} else {
		err = writeJson(out, enumeration)
	}
	if err != nil {
		log.Fatalf("an error occurred while writing the output: %v", err)
	}

	if enumeration.TotalSchedules == 0 && code == exitFound {
		return exitNone
	}
	return code
}

func writeGrids(problem model.Problem, solutions []solver.Assignment, out io.Writer) error {
	for i, assignment := range solutions {
		if _, err := fmt.Fprintf(out, "Schedule %d\n", i+1); err != nil {
			return err
		}
		if err := export.RenderGrid(out, problem, assignment); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return err
		}
	}
	return nil
}

func writeJson(out io.Writer, value any) error {
	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(bytes))
	return err
}
