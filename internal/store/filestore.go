// File: internal/store/filestore.go
// Description: Append-only JSON-lines report store keyed by date. The
// fallback when no database is configured or reachable.
package store

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// FileStore appends reports and alerts as JSON lines under the data dir,
// one file per date. Written lines are never rewritten.
type FileStore struct {
	logger *zap.Logger
	dir    string
	mu     sync.Mutex
}

// NewFileStore creates the store. An empty dir defaults to ~/.guardian/data.
func NewFileStore(logger *zap.Logger, dir string) (*FileStore, error) {
	if dir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory for data dir: %w", err)
		}
		dir = filepath.Join(home, ".guardian", "data")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", dir, err)
	}
	return &FileStore{logger: logger.Named("file-store"), dir: dir}, nil
}

func (s *FileStore) appendLine(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cannot encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("cannot append to %s: %w", name, err)
	}
	return nil
}

// SaveReport appends the report to the current date's report file.
func (s *FileStore) SaveReport(_ context.Context, report *schemas.DailyReport) error {
	date := report.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	return s.appendLine("reports-"+date+".jsonl", report)
}

// LatestReports reads every report file and returns up to n reports ordered
// by execution time descending.
func (s *FileStore) LatestReports(_ context.Context, n int) ([]schemas.DailyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read data dir: %w", err)
	}

	var reports []schemas.DailyReport
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "reports-") || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		f, err := os.Open(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("cannot open %s: %w", e.Name(), err)
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
		for scanner.Scan() {
			var report schemas.DailyReport
			if err := json.Unmarshal(scanner.Bytes(), &report); err != nil {
				// A torn line from a crashed write is skipped, not fatal.
				s.logger.Warn("Skipping unreadable report line", zap.String("file", e.Name()), zap.Error(err))
				continue
			}
			reports = append(reports, report)
		}
		scanErr := scanner.Err()
		f.Close()
		if scanErr != nil {
			return nil, fmt.Errorf("cannot read %s: %w", e.Name(), scanErr)
		}
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].ExecutedAt.After(reports[j].ExecutedAt)
	})
	if len(reports) > n {
		reports = reports[:n]
	}
	return reports, nil
}

// SaveAlert appends the alert to the current date's alert file.
func (s *FileStore) SaveAlert(_ context.Context, alert *schemas.Alert) error {
	return s.appendLine("alerts-"+time.Now().Format("2006-01-02")+".jsonl", alert)
}

// Close is a no-op; files are opened per write.
func (s *FileStore) Close() {}
