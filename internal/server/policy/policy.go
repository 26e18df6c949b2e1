// Package policy is the single role authorization table: which role may
// perform which action, which entry fields a role may change on update and
// which columns a role sees when reading entries.
package policy

import (
	"fmt"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

// Action is a guarded lifecycle operation.
type Action uint8

const (
	CreateEntry Action = iota
	ReadEntries
	UpdateEntry
	DeleteEntry
	CreateUser
	ToggleUserActive
	ReadAuditLog

	numActions
)

var actionNames = [numActions]string{
	CreateEntry:      "createEntry",
	ReadEntries:      "readEntries",
	UpdateEntry:      "updateEntry",
	DeleteEntry:      "deleteEntry",
	CreateUser:       "createUser",
	ToggleUserActive: "toggleUserActive",
	ReadAuditLog:     "readAuditLog",
}

func (a Action) String() string {
	if a >= numActions {
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
	return actionNames[a]
}

// rule is one row of the table. A nil editable set means every entry
// column may be updated.
type rule struct {
	allowed      [numActions]bool
	editable     map[string]struct{}
	seesCreators bool
}

func allow(actions ...Action) (set [numActions]bool) {
	for _, a := range actions {
		set[a] = true
	}
	return set
}

func fields(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// table has one row per Role value. The zero (invalid) role is the empty
// row and is denied everything.
var table = [models.NumRoles]rule{
	models.RoleSuperAdmin: {
		allowed: allow(CreateEntry, ReadEntries, UpdateEntry, DeleteEntry,
			CreateUser, ToggleUserActive, ReadAuditLog),
		seesCreators: true,
	},
	models.RoleDevAdmin: {
		allowed:      allow(CreateEntry, ReadEntries, UpdateEntry, ReadAuditLog),
		seesCreators: true,
	},
	models.RoleUser: {
		allowed:  allow(CreateEntry, ReadEntries, UpdateEntry),
		editable: fields("remarks", "vehicle_no", "status"),
	},
}

func lookup(r models.Role) (rule, bool) {
	if !r.Valid() {
		return rule{}, false
	}
	return table[r], true
}

// CanPerform reports whether role r may perform action a.
func CanPerform(r models.Role, a Action) bool {
	row, ok := lookup(r)
	if !ok || a >= numActions {
		return false
	}
	return row.allowed[a]
}

// Require returns common.ErrForbidden unless r may perform a.
func Require(r models.Role, a Action) error {
	if !CanPerform(r, a) {
		return fmt.Errorf("%w: %s may not %s", common.ErrForbidden, r, a)
	}
	return nil
}

// FieldMaskForUpdate returns the subset of proposed that role r may change.
// The result may be empty; callers decide whether that is an error since an
// attachment-only update carries no fields.
func FieldMaskForUpdate(r models.Role, proposed models.FieldSet) models.FieldSet {
	row, ok := lookup(r)
	if !ok {
		return models.FieldSet{}
	}
	out := make(models.FieldSet, len(proposed))
	for name, v := range proposed {
		if row.editable != nil {
			if _, ok := row.editable[name]; !ok {
				continue
			}
		}
		out[name] = v
	}
	return out
}

// AttachmentField names the entry image in editable sets. It is not a
// registry column, so it never reaches FieldMaskForUpdate output.
const AttachmentField = "image"

// CanReplaceAttachment reports whether role r may upload a new image for an
// existing entry.
func CanReplaceAttachment(r models.Role) bool {
	row, ok := lookup(r)
	if !ok {
		return false
	}
	if row.editable == nil {
		return true
	}
	_, ok = row.editable[AttachmentField]
	return ok
}

// Projection selects the columns returned by entry reads.
type Projection struct {
	IncludeCreator bool
}

// VisibleColumnsForRead returns the entry projection for role r.
func VisibleColumnsForRead(r models.Role) Projection {
	row, _ := lookup(r)
	return Projection{IncludeCreator: row.seesCreators}
}

// CanEditAnyEntry reports whether r may update entries created by other
// accounts. Other roles may only update their own entries.
func CanEditAnyEntry(r models.Role) bool {
	return r.IsAdmin()
}
