package routes

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/log"
	"github.com/miniforms/miniforms/model"
	"github.com/miniforms/miniforms/routes/middlewares"
)

// DownloadFile streams an attached upload to the form's owner.
func DownloadFile(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		uploadId, err := strconv.Atoi(chi.URLParam(r, "id"))
		if err != nil {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid upload id")
			return
		}

		var storageKey, originalName, mimeType string
		err = app.QueryRowContext(r.Context(), `
			SELECT u.storage_key, u.original_name, u.mime_type
			FROM uploads u
			INNER JOIN form_responses r ON (r.id = u.response_id)
			INNER JOIN forms f ON (f.id = r.form_id)
			WHERE u.id = ?
				AND u.status = ?
				AND f.user_id = ?`,
			uploadId, model.UploadAttached, userId,
		).Scan(&storageKey, &originalName, &mimeType)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Fail(w, r, http.StatusForbidden, "FORBIDDEN", "no permission or file not found")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_file", err)
			return
		}

		blob, err := app.Files.Get(storageKey)
		if err != nil {
			log.Debugf("file.open: %s", err)
			httpx.Fail(w, r, http.StatusNotFound, "FILE_NOT_FOUND", "file missing from storage")
			return
		}
		defer blob.Close()

		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", originalName))
		if size, err := app.Files.Size(storageKey); err == nil {
			w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		}

		_, err = io.Copy(w, blob)
		if err != nil {
			log.Debugf("file.stream: %s", err)
		}
	}
}
