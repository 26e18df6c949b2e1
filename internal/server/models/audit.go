package models

import "time"

// AuditAction is the kind of mutation an audit record describes.
type AuditAction string

const (
	AuditCreate         AuditAction = "CREATE"
	AuditUpdate         AuditAction = "UPDATE"
	AuditDelete         AuditAction = "DELETE"
	AuditCreateUser     AuditAction = "CREATE_USER"
	AuditActivateUser   AuditAction = "ACTIVATE_USER"
	AuditDeactivateUser AuditAction = "DEACTIVATE_USER"
)

// AuditLogEntry is an immutable record of one mutation. The user and entry
// display columns are filled only when read back through the joined listing.
type AuditLogEntry struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	EntryID     *int64      `json:"entry_id"`
	Action      AuditAction `json:"action"`
	Description string      `json:"description"`
	CreatedAt   time.Time   `json:"created_at"`

	UserName    string  `json:"user_name"`
	UserEmail   string  `json:"user_email"`
	InvoiceNo   *string `json:"invoice_no"`
	ContainerNo *string `json:"container_no"`
}
