package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/course-enrollment-api/internal/models"
	appErrors "github.com/noah-isme/course-enrollment-api/pkg/errors"
)

// txProvider opens database transactions; *sqlx.DB satisfies it.
type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type auditWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, log *models.AuditLog) error
}

// withinTx runs fn inside one transaction. Without a provider fn receives a nil
// executor and repositories fall back to their own handle.
func withinTx(ctx context.Context, provider txProvider, fn func(exec sqlx.ExtContext) error) (err error) {
	if provider == nil {
		return fn(nil)
	}
	tx, err := provider.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Internal(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Internal(err, "failed to commit transaction")
	}
	return nil
}

// lookupError maps a finder error to NotFound or Internal.
func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Internal(err, internal)
}

func writeAudit(ctx context.Context, w auditWriter, exec sqlx.ExtContext, actor models.Actor, action, resource string, id int64, payload interface{}) error {
	if w == nil {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return appErrors.Internal(err, "failed to encode audit payload")
	}
	resourceID := strconv.FormatInt(id, 10)
	log := &models.AuditLog{
		ActorRole:  actor.Role,
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		NewValues:  types.JSONText(raw),
	}
	if actor.UserID != "" {
		userID := actor.UserID
		log.UserID = &userID
	}
	if err := w.Create(ctx, exec, log); err != nil {
		return appErrors.Internal(err, "failed to record audit log")
	}
	return nil
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErrors.ErrConflict.Code:
		return OutcomeConflict
	case appErrors.ErrForbidden.Code, appErrors.ErrUnauthorized.Code:
		return OutcomeForbidden
	case appErrors.ErrValidation.Code:
		return OutcomeInvalid
	default:
		return OutcomeError
	}
}

// trackOperation records the outcome of a lifecycle operation in metrics and logs.
func trackOperation(metrics *MetricsService, logger *zap.Logger, operation string, actor models.Actor, id int64, err error) {
	outcome := outcomeOf(err)
	metrics.RecordTransition(operation, outcome)
	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("outcome", outcome),
		zap.String("actor_id", actor.UserID),
		zap.String("actor_role", string(actor.Role)),
	}
	if id != 0 {
		fields = append(fields, zap.Int64("id", id))
	}
	switch outcome {
	case OutcomeSuccess:
		logger.Info("lifecycle operation completed", fields...)
	case OutcomeError:
		logger.Error("lifecycle operation failed", append(fields, zap.Error(err))...)
	default:
		logger.Debug("lifecycle operation rejected", append(fields, zap.Error(err))...)
	}
}
