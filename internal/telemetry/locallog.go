package telemetry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const watermarkSuffix = ".merged"

// LocalLog is the CSV log kept in scratch storage for the lifetime of the
// execution environment. A sidecar file next to it holds the number of data
// rows already merged into the durable log.
type LocalLog struct {
	path string
	mu   sync.Mutex
}

// Snapshot is the content of the local log at one point in time
type Snapshot struct {
	Content []byte
	Rows    [][]string // data rows, header excluded
	Merged  int
}

// Pending returns the rows not yet merged into the durable log
func (s *Snapshot) Pending() [][]string {
	return s.Rows[s.Merged:]
}

// NewLocalLog returns the log stored at path. The file is created on the
// first Append.
func NewLocalLog(path string) *LocalLog {
	return &LocalLog{path: path}
}

// Path returns the log file location
func (l *LocalLog) Path() string {
	return l.path
}

// Append writes row at the end of the log, writing the header first when
// the file does not exist yet
func (l *LocalLog) Append(row []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := os.Stat(l.path)
	created := errors.Is(err, fs.ErrNotExist)
	if err != nil && !created {
		return err
	}

	if created {
		if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
			return err
		}
		// A watermark without its log belongs to a previous file
		if err := os.Remove(l.watermarkPath()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := newWriter(file)
	if created {
		if err := writer.Write(Header); err != nil {
			return err
		}
	}
	if err := writer.Write(row); err != nil {
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// Read returns the log content with its parsed rows and watermark
func (l *LocalLog) Read() (*Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	content, err := os.ReadFile(l.path)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = len(Header)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse local log: %w", err)
	}

	snapshot := &Snapshot{Content: content}
	if len(records) > 0 {
		snapshot.Rows = records[1:]
	}

	merged, err := l.readWatermark()
	if err != nil {
		return nil, err
	}
	if merged > len(snapshot.Rows) {
		merged = 0
	}
	snapshot.Merged = merged
	return snapshot, nil
}

// MarkMerged records that the first n data rows are in the durable log
func (l *LocalLog) MarkMerged(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return os.WriteFile(l.watermarkPath(), []byte(strconv.Itoa(n)), 0644)
}

func (l *LocalLog) readWatermark() (int, error) {
	data, err := os.ReadFile(l.watermarkPath())
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || n < 0 {
		return 0, nil
	}
	return n, nil
}

func (l *LocalLog) watermarkPath() string {
	return l.path + watermarkSuffix
}

// Merge appends rows to the durable log content. The durable content is
// kept byte for byte; a missing final line break is added first.
func Merge(durable []byte, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(durable) + 128*len(rows))
	buf.Write(durable)
	if len(durable) > 0 && durable[len(durable)-1] != '\n' {
		buf.WriteString("\r\n")
	}

	writer := newWriter(&buf)
	if err := writer.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// newWriter writes CRLF line endings, the dialect of the existing durable logs
func newWriter(w io.Writer) *csv.Writer {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	return writer
}
