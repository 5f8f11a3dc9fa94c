package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/miniforms/miniforms/model"
)

// Meta is the request-scoped context persisted with a response.
type Meta struct {
	IP        string
	UserAgent string
}

// Writer persists one submission as a single all-or-nothing unit: one
// response row, one answer row per answered question, and the upload
// attachments. Any failure rolls the whole unit back.
type Writer struct {
	DB     *sql.DB
	Binder *UploadBinder
}

func (w *Writer) Write(ctx context.Context, formID int, meta Meta, answers []Answer) (int, error) {
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var responseID int
	err = tx.QueryRowContext(ctx, `
		INSERT INTO form_responses (form_id, submitted_at, ip_address, user_agent)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		formID,
		time.Now(),
		nullable(meta.IP),
		nullable(meta.UserAgent),
	).Scan(&responseID)
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO response_answers (response_id, question_id, answer_value, file_path)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, a := range answers {
		value, filePath, err := w.serialize(ctx, tx, responseID, a)
		if err != nil {
			return 0, err
		}
		_, err = stmt.ExecContext(ctx, responseID, a.QuestionID, value, filePath)
		if err != nil {
			return 0, err
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, err
	}
	return responseID, nil
}

func (w *Writer) serialize(ctx context.Context, tx *sql.Tx, responseID int, a Answer) (value, filePath any, err error) {
	switch a.Type {
	case model.QuestionText, model.QuestionLongText:
		value = a.Text

	case model.QuestionCheckbox:
		ids := a.OptionIDs
		if ids == nil {
			ids = []int{}
		}
		var encoded []byte
		encoded, err = json.Marshal(ids)
		if err != nil {
			return
		}
		value = string(encoded)

	case model.QuestionRadio:
		if a.OptionID > 0 {
			value = strconv.Itoa(a.OptionID)
		}

	case model.QuestionUpload:
		if a.UploadID > 0 {
			value = strconv.Itoa(a.UploadID)

			// re-resolve the storage key under the transaction, then attach
			var key string
			err = tx.QueryRowContext(ctx, `
				SELECT storage_key FROM uploads WHERE id = ?`,
				a.UploadID,
			).Scan(&key)
			switch {
			case errors.Is(err, sql.ErrNoRows):
				err = nil
			case err != nil:
				return
			default:
				filePath = key
			}

			err = w.Binder.Attach(ctx, tx, a.UploadID, responseID)
			if err != nil {
				return
			}
		}
	}
	return
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
