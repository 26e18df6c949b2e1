package entries

import (
	"context"

	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
)

type Repository interface {
	Create(ctx context.Context, entry *models.Entry) (*models.Entry, error)
	List(ctx context.Context, p policy.Projection) ([]*models.Entry, error)
	GetByID(ctx context.Context, id int64, p policy.Projection) (*models.Entry, error)
	// LockForUpdate row-locks the entry for the rest of the transaction and
	// returns its owner and current attachment.
	LockForUpdate(ctx context.Context, id int64) (*models.Entry, error)
	Update(ctx context.Context, id int64, fields models.FieldSet, attachment *models.Attachment) error
	// Delete removes the entry and returns the attachment it referenced, if any.
	Delete(ctx context.Context, id int64) (*models.Attachment, error)
}
