package models

import (
	"encoding/json"
	"time"
)

// Creator carries the display identity of the account that created an entry.
// It is only populated for projections that include it.
type Creator struct {
	Name  string
	Email string
}

// Entry is a shipment ledger record.
type Entry struct {
	ID         int64
	UserID     int64
	Fields     FieldSet
	Attachment *Attachment
	CreatedAt  time.Time

	// Creator is nil when the caller's projection excludes creator data;
	// the JSON form then omits user_id as well.
	Creator *Creator
}

// MarshalJSON renders the entry as one flat object: id, every registry
// column, image_path, created_at and, for creator projections, user_id and
// created_by_name/created_by_email.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(EntryColumns)+6)
	out["id"] = e.ID
	for _, c := range EntryColumns {
		v, ok := e.Fields[c.Name]
		if !ok || v == nil {
			out[c.Name] = nil
			continue
		}
		if t, isTime := v.(time.Time); isTime {
			out[c.Name] = t.Format(DateLayout)
			continue
		}
		out[c.Name] = v
	}

	if e.Attachment != nil {
		out["image_path"] = e.Attachment.URL
	} else {
		out["image_path"] = nil
	}
	out["created_at"] = e.CreatedAt

	if e.Creator != nil {
		out["user_id"] = e.UserID
		out["created_by_name"] = e.Creator.Name
		out["created_by_email"] = e.Creator.Email
	}
	return json.Marshal(out)
}
