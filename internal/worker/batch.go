package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/fracheck/internal/model"
)

// FileValidator validates a single GeoJSON file
type FileValidator interface {
	ValidateFile(ctx context.Context, path string) (*model.ValidationResult, error)
}

// FileJob validates one file of a batch
type FileJob struct {
	Index     int
	Path      string
	Validator FileValidator
}

// Execute executes the validation job
func (j *FileJob) Execute(ctx context.Context) Result {
	result, err := j.Validator.ValidateFile(ctx, j.Path)
	return &FileResult{
		Index:  j.Index,
		Path:   j.Path,
		Result: result,
		Error:  err,
	}
}

// FileResult represents the outcome of a file job
type FileResult struct {
	Index  int
	Path   string
	Result *model.ValidationResult
	Error  error
}

// GetError returns the error from the file result
func (r *FileResult) GetError() error {
	return r.Error
}

// BatchProcessor validates multiple files concurrently
type BatchProcessor struct {
	validator   FileValidator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(validator FileValidator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		validator:   validator,
		concurrency: concurrency,
	}
}

// ProcessPaths validates the files concurrently. Results come back in the
// order of paths.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, paths []string) []*FileResult {
	if len(paths) == 0 {
		return []*FileResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		job := &FileJob{
			Index:     i,
			Path:      path,
			Validator: b.validator,
		}
		if !pool.Submit(job) {
			break
		}
	}

	results := pool.Wait()

	fileResults := make([]*FileResult, 0, len(results))
	for _, result := range results {
		fileResults = append(fileResults, result.(*FileResult))
	}
	sort.Slice(fileResults, func(i, j int) bool { return fileResults[i].Index < fileResults[j].Index })

	return fileResults
}

// ProcessFile reads paths from a list file and validates them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, listPath string) ([]*FileResult, error) {
	paths, err := ReadPathsFromFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("read paths: %w", err)
	}

	return b.ProcessPaths(ctx, paths), nil
}

// ReadPathsFromFile reads GeoJSON paths or URLs from a file (one per line).
// Relative paths are resolved against the list file's directory.
func ReadPathsFromFile(listPath string) ([]string, error) {
	file, err := os.Open(listPath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	dir := filepath.Dir(listPath)
	var paths []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// URLs are passed through untouched
		if !filepath.IsAbs(line) && !strings.Contains(line, "://") {
			line = filepath.Join(dir, line)
		}

		if !seen[line] {
			seen[line] = true
			paths = append(paths, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return paths, nil
}
