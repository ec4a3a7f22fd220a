// Package batch analyzes a folder of prescriptions with a pool of workers.
package batch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"rxguardian/internal/analysis"
	"rxguardian/internal/logger"
	"rxguardian/pkg/services"
)

// DefaultWorkers is used when the runner is given a non-positive worker count.
const DefaultWorkers = 4

// Status summarizes one outcome.
type Status string

const (
	StatusSuccess Status = "success"
	StatusWarning Status = "warning" // analyzed, at least one overdose flagged
	StatusError   Status = "error"
)

var textExtensions = map[string]bool{".txt": true, ".text": true}

var scanExtensions = map[string]bool{
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Analyzer runs one analysis with its bookkeeping.
type Analyzer interface {
	AnalyzeResult(ctx context.Context, text string) analysis.Result
}

// Outcome is the result for one input file.
type Outcome struct {
	Index      int
	Path       string
	SourceText string
	Result     analysis.Result
	Err        error // the file could not be read
}

// Status classifies the outcome.
func (o Outcome) Status() Status {
	if o.Err != nil || o.Result.Err != nil {
		return StatusError
	}
	for _, rec := range o.Result.Records {
		if rec.IsOverdose {
			return StatusWarning
		}
	}
	return StatusSuccess
}

// Runner fans files out to workers. Reader is optional; without it only text
// files can be processed.
type Runner struct {
	analyzer Analyzer
	reader   services.PrescriptionReader
	workers  int
	log      zerolog.Logger

	// Progress, when set, is called after each file under a lock.
	Progress func(done, total int, o Outcome)
}

func NewRunner(analyzer Analyzer, reader services.PrescriptionReader, workers int) *Runner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Runner{
		analyzer: analyzer,
		reader:   reader,
		workers:  workers,
		log:      logger.WithComponent("batch"),
	}
}

type job struct {
	path  string
	index int
}

// Run processes paths and returns one outcome per path in input order.
func (r *Runner) Run(ctx context.Context, paths []string) []Outcome {
	jobs := make(chan job, len(paths))
	results := make([]Outcome, len(paths))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for j := range jobs {
				r.log.Debug().
					Int("worker", workerID).
					Str("file", j.path).
					Int("index", j.index+1).
					Msg("Worker processing prescription")

				o := r.process(ctx, j.path)
				o.Index = j.index
				results[j.index] = o

				mu.Lock()
				done++
				if r.Progress != nil {
					r.Progress(done, len(paths), o)
				}
				mu.Unlock()
			}
		}(w)
	}

	for i, p := range paths {
		jobs <- job{path: p, index: i}
	}
	close(jobs)
	wg.Wait()

	return results
}

func (r *Runner) process(ctx context.Context, path string) Outcome {
	o := Outcome{Path: path}

	text, err := r.readText(ctx, path)
	if err != nil {
		o.Err = err
		return o
	}
	o.SourceText = text
	o.Result = r.analyzer.AnalyzeResult(ctx, text)
	return o
}

func (r *Runner) readText(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if textExtensions[ext] {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	if r.reader == nil {
		return "", fmt.Errorf("%s: OCR is not configured", filepath.Base(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	text, err := r.reader.ReadText(ctx, f)
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	return text, nil
}

// FindFiles walks root and returns the prescription files below it in lexical
// order. Scans (images and PDFs) are only included when withScans is set.
func FindFiles(root string, withScans bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(d.Name()))
		if textExtensions[ext] || (withScans && scanExtensions[ext]) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Summary counts outcomes by status.
type Summary struct {
	Success int
	Warning int
	Error   int
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch o.Status() {
		case StatusSuccess:
			s.Success++
		case StatusWarning:
			s.Warning++
		case StatusError:
			s.Error++
		}
	}
	return s
}

// Export appends every outcome that produced an analysis to exp and returns
// the number of rows written. Failed outcomes are skipped.
func Export(ctx context.Context, exp services.AnalysisExporter, outcomes []Outcome) (int, error) {
	const op = "Export"

	rows := 0
	for _, o := range outcomes {
		if o.Status() == StatusError {
			continue
		}
		n, err := exp.ExportAnalysis(ctx, o.Result.ID, o.Result.Records)
		if err != nil {
			return rows, fmt.Errorf("%s: %s: %w", op, filepath.Base(o.Path), err)
		}
		rows += n
	}
	return rows, nil
}
