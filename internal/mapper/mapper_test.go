package mapper

import (
	"io"
	"sync"
	"testing"

	"github.com/dbsmedya/congregate/internal/config"
	"github.com/dbsmedya/congregate/internal/legacy"
	"github.com/dbsmedya/congregate/internal/logger"
	"github.com/dbsmedya/congregate/internal/progress"
	"github.com/dbsmedya/congregate/internal/refindex"
	"github.com/dbsmedya/congregate/internal/store"
)

// fakeSource replays in-memory records through the Source interface.
type fakeSource struct {
	table   string
	binding *legacy.Binding
	rows    [][]legacy.Value
	formats []string
	pos     int
	closed  bool
}

func newFakeSource(t *testing.T, schema legacy.Schema, header []string, rows [][]legacy.Value) *fakeSource {
	t.Helper()
	binding, err := schema.Bind(header)
	if err != nil {
		t.Fatalf("failed to bind test schema: %v", err)
	}
	return &fakeSource{
		table:   schema.Table,
		binding: binding,
		rows:    rows,
		formats: config.DefaultDateFormats,
	}
}

func (s *fakeSource) Table() string { return s.table }

func (s *fakeSource) Next() (legacy.Row, error) {
	if s.pos >= len(s.rows) {
		return legacy.Row{}, io.EOF
	}
	row := legacy.NewRow(s.binding, s.rows[s.pos], s.formats)
	s.pos++
	return row, nil
}

func (s *fakeSource) Count() (int, error) { return len(s.rows), nil }

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// rewind resets the stream so the same source can feed a second run.
func (s *fakeSource) rewind() { s.pos = 0 }

// recordingReporter captures progress callbacks for assertions.
type recordingReporter struct {
	mu       sync.Mutex
	percents []int
	messages []string
}

func (r *recordingReporter) Report(percent int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percents = append(r.percents, percent)
	r.messages = append(r.messages, message)
}

// testEnv builds a mapper environment over the given store with small
// intervals so checkpoint behavior is observable with a handful of rows.
func testEnv(st store.Store, reportEvery, commitEvery int) *Env {
	cfg := config.DefaultConfig()
	cfg.Source.Tag = "testtag"
	cfg.Processing.ReportingInterval = reportEvery
	cfg.Processing.CommitInterval = commitEvery

	return &Env{
		Store:    st,
		Index:    refindex.New(st, cfg.Source.Tag),
		Log:      logger.NewDefault(),
		Reporter: progress.Nop{},
		Config:   cfg,
	}
}
