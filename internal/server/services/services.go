// Package services contains the server-side lifecycle managers: login and
// session checks, shipment entries, accounts and the audit log. Every call
// that acts on behalf of a caller receives the caller's models.ActorContext
// explicitly.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

// Dispatcher runs best-effort side effects after the primary operation.
// *tasks.Queue implements it.
type Dispatcher interface {
	Dispatch(name string, fn func(context.Context) error) bool
}

// AttachmentStore is the external image store. *attachments.S3Store
// implements it.
type AttachmentStore interface {
	Store(ctx context.Context, data []byte) (*models.Attachment, error)
	Delete(ctx context.Context, handle string) error
}

// PasswordHasher is implemented by *auth.BcryptHasher.
type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
	VerifyDummy(secret string)
}

// TokenSigner is implemented by *auth.TokenSigner.
type TokenSigner interface {
	Sign(actor models.ActorContext, ttl time.Duration) (string, error)
	Verify(token string) (models.ActorContext, error)
}

const (
	taskAudit            = "audit_append"
	taskAttachmentDelete = "attachment_delete"
)

// surface passes taxonomy errors through unchanged and turns anything else
// into an opaque dependency failure after logging the detail.
func surface(ctx context.Context, logger logging.Logger, op string, err error) error {
	if common.Kind(err) != common.ErrDependencyFailure || errors.Is(err, common.ErrDependencyFailure) {
		return err
	}
	logger.Error(ctx, op+" failed", "err", err)
	return fmt.Errorf("%w: %s", common.ErrDependencyFailure, op)
}
