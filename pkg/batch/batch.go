package batch

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/mockup-crop/internal/errors"
	"github.com/menta2k/mockup-crop/internal/logging"
	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/processing"
	"github.com/menta2k/mockup-crop/pkg/types"
)

const (
	DefaultWorkers = 3
	MaxWorkers     = 8
)

// Options controls a batch run
type Options struct {
	OutputDir string
	Overwrite bool
	SafeMode  bool
	Workers   int
	Suffix    string
	DebugDir  string
}

// Scheduler fans files out over a bounded worker pool
type Scheduler struct {
	run func(path string, opts processing.Options) types.ProcessResult
}

// New creates a Scheduler backed by a default processor
func New() *Scheduler {
	return NewWithProcessor(processing.NewProcessor())
}

// NewWithProcessor creates a Scheduler that runs every file through p
func NewWithProcessor(p *processing.Processor) *Scheduler {
	return &Scheduler{run: p.ProcessFile}
}

// ClampWorkers bounds n to [1, MaxWorkers]
func ClampWorkers(n int) int {
	return max(1, min(n, MaxWorkers))
}

// ProcessBatch processes every supported path and blocks until all are done.
// Unsupported extensions are dropped before scheduling. Results come back in
// input order; progress fires once per file in completion order, never
// concurrently with itself.
func (s *Scheduler) ProcessBatch(paths []string, opts Options, progress types.ProgressFunc) []types.ProcessResult {
	files := make([]string, 0, len(paths))
	for _, p := range paths {
		if utils.IsImageFile(p) {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return []types.ProcessResult{}
	}

	runID := uuid.New().String()[:8]
	logger := logging.New("batch " + runID)
	workers := ClampWorkers(opts.Workers)
	total := len(files)
	logger.Printf("processing %d files with %d workers into %s", total, workers, opts.OutputDir)
	start := time.Now()

	fileOpts := processing.Options{
		OutputDir: opts.OutputDir,
		Overwrite: opts.Overwrite,
		SafeMode:  opts.SafeMode,
		Suffix:    opts.Suffix,
		DebugDir:  opts.DebugDir,
	}

	results := make([]types.ProcessResult, total)
	var (
		mu   sync.Mutex
		done int
	)

	var g errgroup.Group
	g.SetLimit(workers)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			res := s.runTask(path, fileOpts)
			results[i] = res

			mu.Lock()
			defer mu.Unlock()
			done++
			logger.Debugf("[%d/%d] %s -> %s", done, total, path, res.Status)
			if progress != nil {
				notify(logger, progress, done, total, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	logger.Printf("batch finished in %s", time.Since(start).Round(time.Millisecond))
	return results
}

// runTask is the task boundary: a panic becomes an UNEXPECTED error result
func (s *Scheduler) runTask(path string, opts processing.Options) (res types.ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			err := errors.NewUnexpectedError(path, fmt.Errorf("%v", r))
			res = types.ProcessResult{
				InputPath:  path,
				OutputPath: processing.OutputPath(path, opts.OutputDir, opts.Suffix),
				Status:     types.StatusError,
				Message:    err.Error(),
				CropMethod: types.MethodFallbackCenter,
			}
		}
	}()
	return s.run(path, opts)
}

func notify(logger *logging.Logger, progress types.ProgressFunc, done, total int, res types.ProcessResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("progress callback panicked: %v", r)
		}
	}()
	progress(done, total, res)
}
