package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// businessColumns is the registry column list with the given table alias.
func businessColumns(alias string) string {
	names := make([]string, len(models.EntryColumns))
	for i, c := range models.EntryColumns {
		names[i] = alias + c.Name
	}
	return strings.Join(names, ", ")
}

func selectQuery(p policy.Projection) string {
	var b strings.Builder
	b.WriteString("SELECT le.id, le.user_id, ")
	b.WriteString(businessColumns("le."))
	b.WriteString(", le.image_path, le.image_handle, le.created_at")
	if p.IncludeCreator {
		b.WriteString(", u.name, u.email FROM logistic_entries le JOIN users u ON u.id = le.user_id")
	} else {
		b.WriteString(" FROM logistic_entries le")
	}
	return b.String()
}

// Create inserts every registry column of entry.Fields (absent ones as NULL)
// and fills the generated id and creation time.
func (r *PostgresRepository) Create(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	cols := []string{"user_id"}
	args := []any{entry.UserID}
	for _, c := range models.EntryColumns {
		cols = append(cols, c.Name)
		args = append(args, entry.Fields[c.Name])
	}

	var path, handle sql.NullString
	if entry.Attachment != nil {
		path = sql.NullString{String: entry.Attachment.URL, Valid: true}
		handle = sql.NullString{String: entry.Attachment.Handle, Valid: true}
	}
	cols = append(cols, "image_path", "image_handle")
	args = append(args, path, handle)

	placeholders := make([]string, len(args))
	for i := range args {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	query := fmt.Sprintf(
		"INSERT INTO logistic_entries (%s) VALUES (%s) RETURNING id, created_at",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return entry, nil
}

// List returns every entry, newest first.
func (r *PostgresRepository) List(ctx context.Context, p policy.Projection) ([]*models.Entry, error) {
	query := selectQuery(p) + " ORDER BY le.created_at DESC, le.id DESC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows, p)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64, p policy.Projection) (*models.Entry, error) {
	query := selectQuery(p) + " WHERE le.id = $1"

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, id), p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return e, nil
}

func (r *PostgresRepository) LockForUpdate(ctx context.Context, id int64) (*models.Entry, error) {
	query :=
		`SELECT id, user_id, image_path, image_handle FROM logistic_entries
		 WHERE id = $1
		 FOR UPDATE
		 `

	e := &models.Entry{}
	var path, handle sql.NullString
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.UserID, &path, &handle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	e.Attachment = attachmentFrom(path, handle)

	return e, nil
}

// Update writes the given registry columns and, when attachment is non-nil,
// the new attachment reference. Column names are taken from the registry
// only; an unknown name is rejected before any SQL is built.
func (r *PostgresRepository) Update(ctx context.Context, id int64, fields models.FieldSet, attachment *models.Attachment) error {
	var (
		sets []string
		args []any
	)
	for _, name := range fields.Names() {
		if _, ok := models.LookupColumn(name); !ok {
			return fmt.Errorf("%w: %s", common.ErrInvalidField, name)
		}
		args = append(args, fields[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", name, len(args)))
	}
	if attachment != nil {
		args = append(args, attachment.URL)
		sets = append(sets, fmt.Sprintf("image_path = $%d", len(args)))
		args = append(args, attachment.Handle)
		sets = append(sets, fmt.Sprintf("image_handle = $%d", len(args)))
	}
	if len(sets) == 0 {
		return common.ErrNoEditableFields
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE logistic_entries SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*models.Attachment, error) {
	query :=
		`DELETE FROM logistic_entries
		 WHERE id = $1
		 RETURNING image_path, image_handle
		 `

	var path, handle sql.NullString
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&path, &handle); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return attachmentFrom(path, handle), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner, p policy.Projection) (*models.Entry, error) {
	e := &models.Entry{}
	var path, handle sql.NullString

	dest := []any{&e.ID, &e.UserID}
	holders := make([]any, len(models.EntryColumns))
	for i, c := range models.EntryColumns {
		switch c.Kind {
		case models.KindDate:
			holders[i] = &sql.NullTime{}
		case models.KindMoney:
			holders[i] = &sql.NullFloat64{}
		case models.KindCount:
			holders[i] = &sql.NullInt64{}
		default:
			holders[i] = &sql.NullString{}
		}
	}
	dest = append(dest, holders...)
	dest = append(dest, &path, &handle, &e.CreatedAt)

	var creator models.Creator
	if p.IncludeCreator {
		dest = append(dest, &creator.Name, &creator.Email)
	}

	if err := s.Scan(dest...); err != nil {
		return nil, err
	}

	e.Fields = make(models.FieldSet, len(models.EntryColumns))
	for i, c := range models.EntryColumns {
		e.Fields[c.Name] = holderValue(holders[i])
	}
	e.Attachment = attachmentFrom(path, handle)
	if p.IncludeCreator {
		e.Creator = &creator
	}

	return e, nil
}

func holderValue(h any) any {
	switch v := h.(type) {
	case *sql.NullString:
		if v.Valid {
			return v.String
		}
	case *sql.NullTime:
		if v.Valid {
			return v.Time
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64
		}
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64
		}
	}
	return nil
}

func attachmentFrom(path, handle sql.NullString) *models.Attachment {
	if !handle.Valid || handle.String == "" {
		return nil
	}
	return &models.Attachment{URL: path.String, Handle: handle.String}
}
