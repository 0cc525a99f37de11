package lifecycle

import (
	"log/slog"

	"github.com/poiesic/solstore/core"
	"github.com/poiesic/solstore/storage"
)

// FaultReporter receives storage open failures. Reports are delivered on the
// service's worker pool; the goroutine that requested storage does not wait
// for them.
type FaultReporter interface {
	ReportOpenFailure(solution *core.Solution, err error)
}

// LogFaultReporter reports faults through slog.
type LogFaultReporter struct {
	Logger *slog.Logger
}

// ReportOpenFailure implements FaultReporter.
func (r LogFaultReporter) ReportOpenFailure(solution *core.Solution, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("unable to open solution storage",
		"solution", solution.ID.String(),
		"path", solution.FilePath,
		"kind", storage.KindOf(err).String(),
		"err", err)
}
