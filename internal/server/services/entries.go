package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/dbx"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/dmitrijs2005/shipledger/internal/server/policy"
	"github.com/dmitrijs2005/shipledger/internal/server/repositories/repomanager"
)

// EntryService manages shipment entries and keeps their attachments in step
// with the rows that reference them.
type EntryService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       AttachmentStore
	dispatcher  Dispatcher
	audit       *AuditService
	logger      logging.Logger
}

func NewEntryService(db *sql.DB, m repomanager.RepositoryManager, store AttachmentStore, d Dispatcher,
	audit *AuditService, logger logging.Logger) *EntryService {
	return &EntryService{
		db:          db,
		repomanager: m,
		store:       store,
		dispatcher:  d,
		audit:       audit,
		logger:      logger.With("module", "entries"),
	}
}

// Create validates and stores a new entry owned by the actor. image may be
// nil. Mandatory fields are checked before anything is uploaded, so a
// rejected request leaves no object behind.
func (s *EntryService) Create(ctx context.Context, actor models.ActorContext, raw map[string]any, image []byte) (*models.Entry, error) {
	if err := policy.Require(actor.Role, policy.CreateEntry); err != nil {
		return nil, err
	}

	fields, err := models.ParseFields(raw)
	if err != nil {
		return nil, err
	}
	if missing := fields.MissingRequired(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", common.ErrMissingRequiredFields, strings.Join(missing, ", "))
	}

	var attachment *models.Attachment
	if len(image) > 0 {
		attachment, err = s.store.Store(ctx, image)
		if err != nil {
			return nil, surface(ctx, s.logger, "store attachment", err)
		}
	}

	entry := &models.Entry{
		UserID:     actor.AccountID,
		Fields:     fields.WithCreateDefaults(),
		Attachment: attachment,
	}
	if _, err := s.repomanager.Entries(s.db).Create(ctx, entry); err != nil {
		if attachment != nil {
			s.scheduleAttachmentDelete(attachment.Handle)
		}
		return nil, surface(ctx, s.logger, "create entry", err)
	}

	s.audit.Append(actor.AccountID, &entry.ID, models.AuditCreate, "Entry created")
	return entry, nil
}

// List returns every entry, newest first, in the actor's projection.
func (s *EntryService) List(ctx context.Context, actor models.ActorContext) ([]*models.Entry, error) {
	if err := policy.Require(actor.Role, policy.ReadEntries); err != nil {
		return nil, err
	}

	list, err := s.repomanager.Entries(s.db).List(ctx, policy.VisibleColumnsForRead(actor.Role))
	if err != nil {
		return nil, surface(ctx, s.logger, "list entries", err)
	}
	return list, nil
}

// Get returns one entry in the actor's projection.
func (s *EntryService) Get(ctx context.Context, actor models.ActorContext, id int64) (*models.Entry, error) {
	if err := policy.Require(actor.Role, policy.ReadEntries); err != nil {
		return nil, err
	}

	entry, err := s.repomanager.Entries(s.db).GetByID(ctx, id, policy.VisibleColumnsForRead(actor.Role))
	if err != nil {
		return nil, surface(ctx, s.logger, "get entry", err)
	}
	return entry, nil
}

// Update applies the actor's field mask to raw and writes what remains,
// replacing the attachment when image is given and the role may do so.
// Accounts that cannot edit any entry may only edit their own. The old
// attachment is deleted in the background once the row update commits.
func (s *EntryService) Update(ctx context.Context, actor models.ActorContext, id int64, raw map[string]any, image []byte) error {
	if err := policy.Require(actor.Role, policy.UpdateEntry); err != nil {
		return err
	}

	proposed, err := models.ParseFields(raw)
	if err != nil {
		return err
	}
	fields := policy.FieldMaskForUpdate(actor.Role, proposed)
	if blanked := fields.BlankedRequired(); len(blanked) > 0 {
		return fmt.Errorf("%w: %s", common.ErrMissingRequiredFields, strings.Join(blanked, ", "))
	}

	replace := len(image) > 0 && policy.CanReplaceAttachment(actor.Role)
	if len(fields) == 0 && !replace {
		return common.ErrNoEditableFields
	}

	var fresh *models.Attachment
	if replace {
		fresh, err = s.store.Store(ctx, image)
		if err != nil {
			return surface(ctx, s.logger, "store attachment", err)
		}
	}

	var previous *models.Attachment
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Entries(tx)

		current, err := repo.LockForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.UserID != actor.AccountID && !policy.CanEditAnyEntry(actor.Role) {
			return fmt.Errorf("%w: entry %d belongs to another account", common.ErrForbidden, id)
		}
		previous = current.Attachment

		return repo.Update(ctx, id, fields, fresh)
	})
	if err != nil {
		if fresh != nil {
			s.scheduleAttachmentDelete(fresh.Handle)
		}
		return surface(ctx, s.logger, "update entry", err)
	}

	if fresh != nil && previous != nil {
		s.scheduleAttachmentDelete(previous.Handle)
	}

	s.audit.Append(actor.AccountID, &id, models.AuditUpdate, "Entry updated")
	return nil
}

// Delete removes the entry and schedules deletion of its attachment.
func (s *EntryService) Delete(ctx context.Context, actor models.ActorContext, id int64) error {
	if err := policy.Require(actor.Role, policy.DeleteEntry); err != nil {
		return err
	}

	attachment, err := s.repomanager.Entries(s.db).Delete(ctx, id)
	if err != nil {
		return surface(ctx, s.logger, "delete entry", err)
	}

	if attachment != nil {
		s.scheduleAttachmentDelete(attachment.Handle)
	}

	s.audit.Append(actor.AccountID, &id, models.AuditDelete, "Entry deleted")
	return nil
}

// scheduleAttachmentDelete removes an object in the background. An object
// that is already gone is not a failure.
func (s *EntryService) scheduleAttachmentDelete(handle string) {
	s.dispatcher.Dispatch(taskAttachmentDelete, func(ctx context.Context) error {
		err := s.store.Delete(ctx, handle)
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Warn(ctx, "attachment already removed", "handle", handle)
			return nil
		}
		if err != nil {
			return fmt.Errorf("delete attachment %s: %w", handle, err)
		}
		return nil
	})
}
