package auditlogs

import (
	"context"

	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

// Repository is append-only: there is no update or delete.
type Repository interface {
	Create(ctx context.Context, entry *models.AuditLogEntry) (int64, error)
	List(ctx context.Context) ([]*models.AuditLogEntry, error)
}
