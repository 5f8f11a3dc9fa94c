package routes

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/log"
	"github.com/miniforms/miniforms/model"
)

// extensions never accepted regardless of MIME
var blockedExtensions = map[string]bool{
	"php": true, "phtml": true, "phar": true, "htaccess": true,
	"exe": true, "sh": true, "bat": true, "cmd": true, "js": true,
}

func PublicCreateUpload(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, app.UploadMaxBytes+1<<20)

		file, header, err := r.FormFile("file")
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "UPLOAD_MISSING", `send the file in the "file" field`)
			return
		}
		defer file.Close()

		if header.Size > app.UploadMaxBytes {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "UPLOAD_TOO_LARGE", "file exceeds the size limit",
				map[string]any{"max_bytes": app.UploadMaxBytes})
			return
		}

		mime, err := sniffMime(file, header.Header.Get("Content-Type"))
		if err != nil {
			httpx.LogInternalError(w, r, "upload.sniff", err)
			return
		}
		if len(app.AllowedMime) > 0 && !contains(app.AllowedMime, mime) {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "UPLOAD_MIME_NOT_ALLOWED", "file type not allowed",
				map[string]any{"mime": mime})
			return
		}

		originalName := header.Filename
		if originalName == "" {
			originalName = "file"
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalName), "."))
		if blockedExtensions[ext] {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "UPLOAD_EXTENSION_BLOCKED", "extension blocked",
				map[string]any{"ext": ext})
			return
		}

		storageKey := uuid.NewString()
		if ext != "" {
			storageKey += "." + ext
		}

		_, err = app.Files.Put(storageKey, file)
		if err != nil {
			httpx.LogInternalError(w, r, "upload.store", err)
			return
		}

		expiresAt := time.Now().Add(app.UploadTTL)
		var uploadId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO uploads (storage_key, original_name, mime_type, size_bytes, status, expires_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id`,
			storageKey, originalName, mime, header.Size, model.UploadTemporary, expiresAt,
		).Scan(&uploadId)
		if err != nil {
			// no orphan file when the row cannot be recorded
			if delErr := app.Files.Delete(storageKey); delErr != nil {
				log.Warnf("upload.cleanup: %s", delErr)
			}
			httpx.LogInternalError(w, r, "db.insert_upload", err)
			return
		}

		httpx.Created(w, r, map[string]any{
			"upload_id":     uploadId,
			"original_name": originalName,
			"mime_type":     mime,
			"size_bytes":    header.Size,
			"expires_at":    expiresAt,
		})
	}
}

// sniffMime trusts file content over the declared type. DetectContentType
// cannot tell office documents from plain zip, so for generic results the
// declared type wins when present.
func sniffMime(file io.ReadSeeker, declared string) (string, error) {
	head := make([]byte, 512)
	n, err := file.Read(head)
	if err != nil && err != io.EOF {
		return "", err
	}
	_, err = file.Seek(0, io.SeekStart)
	if err != nil {
		return "", err
	}

	mime := http.DetectContentType(head[:n])
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	generic := mime == "application/octet-stream" || mime == "application/zip"
	if generic && declared != "" {
		if i := strings.Index(declared, ";"); i >= 0 {
			declared = declared[:i]
		}
		mime = strings.TrimSpace(declared)
	}
	return mime, nil
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
