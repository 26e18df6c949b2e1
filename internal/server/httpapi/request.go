package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/server/attachments"
	"github.com/gorilla/mux"
)

// imageField is the multipart part carrying an entry attachment.
const imageField = "image"

// maxBodyBytes bounds a request body: one attachment plus form overhead.
const maxBodyBytes = attachments.MaxAttachmentSize + 1<<20

var errMalformedBody = fmt.Errorf("%w: malformed request body", common.ErrValidation)

// decodeJSON reads a JSON object body into v. An empty body leaves v alone.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.ErrAttachmentTooLarge
		}
		return errMalformedBody
	}
	return nil
}

// readEntryRequest returns the proposed entry fields and the optional image.
// Multipart bodies carry fields as form values and the image as the "image"
// part; anything else is read as a JSON object.
func readEntryRequest(w http.ResponseWriter, r *http.Request) (map[string]any, []byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		raw := map[string]any{}
		if err := decodeJSON(w, r, &raw); err != nil {
			return nil, nil, err
		}
		return raw, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, common.ErrAttachmentTooLarge
		}
		return nil, nil, errMalformedBody
	}
	defer r.MultipartForm.RemoveAll()

	raw := make(map[string]any, len(r.MultipartForm.Value))
	for k, vs := range r.MultipartForm.Value {
		if len(vs) > 0 {
			raw[k] = vs[0]
		}
	}

	file, _, err := r.FormFile(imageField)
	if errors.Is(err, http.ErrMissingFile) {
		return raw, nil, nil
	}
	if err != nil {
		return nil, nil, errMalformedBody
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, attachments.MaxAttachmentSize+1))
	if err != nil {
		return nil, nil, errMalformedBody
	}
	if len(image) > attachments.MaxAttachmentSize {
		return nil, nil, common.ErrAttachmentTooLarge
	}
	return raw, image, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id", common.ErrInvalidField)
	}
	return id, nil
}
