package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-gl/internal/integrity"
)

// IntegrityChecker is satisfied by *integrity.Checker.
type IntegrityChecker interface {
	Run(ctx context.Context, companyID int64) (integrity.Report, error)
	RunAll(ctx context.Context) ([]integrity.Report, error)
}

// GLIntegrityJob runs the ledger integrity checker on schedule.
type GLIntegrityJob struct {
	Checker IntegrityChecker
	Logger  *slog.Logger
}

// NewGLIntegrityJob constructs the handler.
func NewGLIntegrityJob(checker IntegrityChecker, logger *slog.Logger) *GLIntegrityJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &GLIntegrityJob{Checker: checker, Logger: logger}
}

// Handle executes one integrity run. Findings are reported through logs and
// metrics; only query failures are retried.
func (j *GLIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Checker == nil {
		return errors.New("gl integrity: handler not configured")
	}
	var payload GLIntegrityPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	var reports []integrity.Report
	if payload.CompanyID > 0 {
		report, err := j.Checker.Run(ctx, payload.CompanyID)
		if err != nil {
			return err
		}
		reports = append(reports, report)
	} else {
		var err error
		reports, err = j.Checker.RunAll(ctx)
		if err != nil {
			return err
		}
	}
	findings := 0
	for _, r := range reports {
		findings += len(r.Findings)
	}
	j.Logger.Info("GL integrity check executed",
		slog.String("job", "gl_integrity"),
		slog.Int("companies", len(reports)),
		slog.Int("findings", findings))
	return nil
}
