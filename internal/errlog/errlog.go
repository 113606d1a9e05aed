package errlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/types"
)

const (
	DefaultPrefix = "mockup_errors_cli"
	header        = "archivo,error"
)

// Writer appends failed results to a CSV-like error log. It must be closed
// by whoever opened it.
type Writer struct {
	path string
	file *os.File
	buf  *bufio.Writer
}

// FileName returns <prefix>_<YYYYMMDD_HHMMSS>.log for t
func FileName(prefix string, t time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_%s.log", prefix, t.Format("20060102_150405"))
}

// Open creates the log file in dir and writes the header line
func Open(dir, prefix string, t time.Time) (*Writer, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	path := filepath.Join(dir, FileName(prefix, t))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create error log: %w", err)
	}

	w := &Writer{path: path, file: f, buf: bufio.NewWriter(f)}
	if _, err := w.buf.WriteString(header + "\n"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write error log header: %w", err)
	}
	return w, nil
}

// Path returns the log file location
func (w *Writer) Path() string {
	return w.path
}

// Write records one result as "path,message"
func (w *Writer) Write(result types.ProcessResult) error {
	_, err := fmt.Fprintf(w.buf, "%s,%s\n", result.InputPath, utils.SanitizeLogField(result.Message))
	return err
}

// Close flushes and closes the file. It is safe to call more than once.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// WriteErrors writes every error-status result to a fresh log in dir. It
// returns "" without creating a file when there is nothing to record.
func WriteErrors(dir, prefix string, t time.Time, results []types.ProcessResult) (path string, err error) {
	var failed []types.ProcessResult
	for _, r := range results {
		if r.Status == types.StatusError {
			failed = append(failed, r)
		}
	}
	if len(failed) == 0 {
		return "", nil
	}

	w, err := Open(dir, prefix, t)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()

	for _, r := range failed {
		if err := w.Write(r); err != nil {
			return "", err
		}
	}
	return w.Path(), nil
}
