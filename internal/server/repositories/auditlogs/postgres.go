package auditlogs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.AuditLogEntry) (int64, error) {
	query :=
		`INSERT INTO logs (user_id, entry_id, action, description)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	var entryID sql.NullInt64
	if entry.EntryID != nil {
		entryID = sql.NullInt64{Int64: *entry.EntryID, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		entry.UserID, entryID, string(entry.Action), entry.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}

	return id, nil
}

// List returns the whole log, newest first, joined with the actor's display
// identity and, while the entry still exists, its invoice and container numbers.
func (r *PostgresRepository) List(ctx context.Context) ([]*models.AuditLogEntry, error) {
	query :=
		`SELECT l.id, l.user_id, l.entry_id, l.action, l.description, l.created_at,
		        u.name, u.email, le.invoice_no, le.container_no
		 FROM logs l
		 JOIN users u ON u.id = l.user_id
		 LEFT JOIN logistic_entries le ON le.id = l.entry_id
		 ORDER BY l.created_at DESC, l.id DESC
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.AuditLogEntry, 0)
	for rows.Next() {
		var (
			e                    models.AuditLogEntry
			entryID              sql.NullInt64
			action               string
			invoiceNo, container sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &entryID, &action, &e.Description, &e.CreatedAt,
			&e.UserName, &e.UserEmail, &invoiceNo, &container); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}

		e.Action = models.AuditAction(action)
		if entryID.Valid {
			e.EntryID = &entryID.Int64
		}
		if invoiceNo.Valid {
			e.InvoiceNo = &invoiceNo.String
		}
		if container.Valid {
			e.ContainerNo = &container.String
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
