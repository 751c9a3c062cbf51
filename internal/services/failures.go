package services

import (
	"context"
	"log/slog"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

// reportFailure logs err with its operation and user before it is handed
// back. Storage and unclassified failures go to the error log; anything
// the caller can fix is a warning.
func reportFailure(ctx context.Context, logger *applog.Logger, subject, op, userID string, err error) error {
	if err == nil {
		return nil
	}
	fields := applog.NewFields().WithUser(userID)
	switch core.KindOf(err) {
	case core.Persistence, "":
		applog.NewStructuredLogger(logger).LogError(ctx, subject+" operation failed", err, logger.Component(), op, fields)
	default:
		logger.Fields(ctx, slog.LevelWarn, subject+" operation rejected", fields.WithOperation(op).WithError(err))
	}
	return err
}
