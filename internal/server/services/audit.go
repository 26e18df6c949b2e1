package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/repomanager"
)

// AuditService records who did what to which entry or account. Appends run
// on the dispatcher and never fail the operation being audited.
type AuditService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	dispatcher  Dispatcher
	logger      logging.Logger
}

func NewAuditService(db *sql.DB, m repomanager.RepositoryManager, d Dispatcher, logger logging.Logger) *AuditService {
	return &AuditService{
		db:          db,
		repomanager: m,
		dispatcher:  d,
		logger:      logger.With("module", "audit"),
	}
}

// Append schedules an audit record and returns immediately. The write
// happens on the task queue; its failure is logged there and never reaches
// the caller.
func (s *AuditService) Append(actorID int64, entryID *int64, action models.AuditAction, description string) {
	rec := &models.AuditLogEntry{
		UserID:      actorID,
		EntryID:     entryID,
		Action:      action,
		Description: description,
	}

	s.dispatcher.Dispatch(taskAudit, func(ctx context.Context) error {
		_, err := s.repomanager.AuditLogs(s.db).Create(ctx, rec)
		return err
	})
}

// List returns the audit log, newest first.
func (s *AuditService) List(ctx context.Context, actor models.ActorContext) ([]*models.AuditLogEntry, error) {
	if err := policy.Require(actor.Role, policy.ReadAuditLog); err != nil {
		return nil, err
	}

	logs, err := s.repomanager.AuditLogs(s.db).List(ctx)
	if err != nil {
		return nil, surface(ctx, s.logger, "list audit log", err)
	}
	return logs, nil
}
