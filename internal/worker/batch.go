package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/dossier/internal/logging"
	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/retry"
)

// Assembler builds and persists one subject's dossier
type Assembler interface {
	Run(ctx context.Context, name, externalID string) (*pipeline.RunResult, error)
}

// Subject is one politician to assemble
type Subject struct {
	Name       string
	WikidataID string
}

// AssembleJob runs the assembler for one subject under the retry policy
type AssembleJob struct {
	Subject   Subject
	Assembler Assembler
	Retry     retry.Config
	Timeout   time.Duration
}

// Execute runs the job
func (j *AssembleJob) Execute(ctx context.Context) Result {
	ctx = logging.ForTask(ctx, "batch", j.Subject.WikidataID)
	res, attempts, err := runWithRetry(ctx, j.Assembler, j.Retry, j.Timeout, j.Subject.Name, j.Subject.WikidataID)
	return &AssembleResult{
		Subject:  j.Subject,
		Result:   res,
		Attempts: attempts,
		Error:    err,
	}
}

// AssembleResult is the outcome of one AssembleJob
type AssembleResult struct {
	Subject  Subject
	Result   *pipeline.RunResult
	Attempts int
	Error    error
}

// GetError returns the job error
func (r *AssembleResult) GetError() error {
	return r.Error
}

// runWithRetry calls the assembler until it succeeds or fails permanently.
// Each attempt gets its own timeout.
func runWithRetry(ctx context.Context, a Assembler, cfg retry.Config, timeout time.Duration, name, externalID string) (*pipeline.RunResult, int, error) {
	logger := logging.FromContext(ctx)

	cfg.OnRetry = func(attempt int, err error, next time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("assemble failed, retrying")
	}

	var (
		result   *pipeline.RunResult
		attempts int
	)
	err := retry.Do(ctx, cfg, func(attempt int) error {
		attempts = attempt

		attemptCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		res, err := a.Run(attemptCtx, name, externalID)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, attempts, err
}

// BatchProcessor assembles many subjects concurrently
type BatchProcessor struct {
	assembler   Assembler
	concurrency int
	retry       retry.Config
	timeout     time.Duration
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(assembler Assembler, concurrency int, retryCfg retry.Config, taskTimeout time.Duration) *BatchProcessor {
	return &BatchProcessor{
		assembler:   assembler,
		concurrency: concurrency,
		retry:       retryCfg,
		timeout:     taskTimeout,
	}
}

// ProcessSubjects assembles subjects and returns results in input order
func (b *BatchProcessor) ProcessSubjects(ctx context.Context, subjects []Subject) []*AssembleResult {
	if len(subjects) == 0 {
		return []*AssembleResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, s := range subjects {
		pool.Submit(&AssembleJob{
			Subject:   s,
			Assembler: b.assembler,
			Retry:     b.retry,
			Timeout:   b.timeout,
		})
	}

	results := pool.Wait()

	out := make([]*AssembleResult, len(results))
	for i, r := range results {
		out[i] = r.(*AssembleResult)
	}
	return out
}

// ProcessFile reads subjects from a file and assembles them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AssembleResult, error) {
	subjects, err := ReadSubjectsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read subjects: %w", err)
	}
	return b.ProcessSubjects(ctx, subjects), nil
}

// ReadSubjectsFromFile reads "name,wikidataid" lines. Blank lines and lines
// starting with # are skipped. The identifier is taken after the last comma
// so names may contain commas. Repeated identifiers keep the first line.
func ReadSubjectsFromFile(filePath string) ([]Subject, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var subjects []Subject
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		cut := strings.LastIndexByte(line, ',')
		if cut < 0 {
			return nil, fmt.Errorf("line %d: expected \"name,wikidataid\"", lineNo)
		}
		s := Subject{
			Name:       strings.TrimSpace(line[:cut]),
			WikidataID: strings.TrimSpace(line[cut+1:]),
		}
		if s.Name == "" || s.WikidataID == "" {
			return nil, fmt.Errorf("line %d: name and wikidataid are required", lineNo)
		}

		if !seen[s.WikidataID] {
			seen[s.WikidataID] = true
			subjects = append(subjects, s)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return subjects, nil
}
