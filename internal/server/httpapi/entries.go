package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/shipledger/internal/server/models"
)

type createEntryResponse struct {
	Message  string  `json:"message"`
	EntryID  int64   `json:"entry_id"`
	ImageURL *string `json:"image_url"`
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	raw, image, err := readEntryRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.entries.Create(r.Context(), actor, raw, image)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := createEntryResponse{Message: "Entry created successfully", EntryID: entry.ID}
	if entry.Attachment != nil {
		resp.ImageURL = &entry.Attachment.URL
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	list, err := h.entries.List(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}

	if list == nil {
		list = []*models.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	entry, err := h.entries.Get(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	raw, image, err := readEntryRequest(w, r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.entries.Update(r.Context(), actor, id, raw, image); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Entry updated successfully")
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, _ := actorFrom(r.Context())

	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.entries.Delete(r.Context(), actor, id); err != nil {
		writeError(w, err)
		return
	}
	writeMessage(w, http.StatusOK, "Entry deleted successfully")
}
