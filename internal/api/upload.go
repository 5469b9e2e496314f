package api

import (
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

const maxUploadBytes = 10 << 20 // 10 MB

// ImportBackup handles POST /api/backup.
// The document may be the raw JSON body or a multipart form with a "file"
// field, as sent by a browser file picker.
//
//	@Summary		Merge a backup document into the state
//	@Tags			backup
//	@Accept			json
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	false	"Backup file (.json)"
//	@Success		200		{object}	backup.Report
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/backup [post]
func (h *Handler) ImportBackup(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	data, errMsg := readUpload(r)
	if errMsg != "" {
		writeJSON(w, http.StatusBadRequest, errorBody(errMsg))
		return
	}
	rep, err := h.svc.ImportBackup(r.Context(), data)
	if err != nil {
		writeError(w, "import backup", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// readUpload returns the uploaded document, or a client-facing message.
func readUpload(r *http.Request) ([]byte, string) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "file too large or unreadable"
		}
		return data, ""
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, "file too large or invalid multipart"
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "missing 'file' field in multipart form"
	}
	defer file.Close()

	if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != "" && ext != ".json" {
		return nil, "backup must be a .json file"
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "failed to read file"
	}
	return data, ""
}
