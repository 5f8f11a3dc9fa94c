package submission

import (
	"context"
	"database/sql"
	"errors"

	"github.com/miniforms/miniforms/model"
)

// UploadBinder reads temporary uploads during validation and flips them to
// attached during commit.
type UploadBinder struct {
	DB *sql.DB
}

func (b *UploadBinder) Lookup(ctx context.Context, uploadID int) (*model.Upload, error) {
	upload := model.Upload{}
	var expiresAt sql.NullTime
	var responseID sql.NullInt64
	err := b.DB.QueryRowContext(ctx, `
		SELECT id, storage_key, status, expires_at, response_id
		FROM uploads
		WHERE id = ?`,
		uploadID,
	).Scan(&upload.ID, &upload.StorageKey, &upload.Status, &expiresAt, &responseID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if expiresAt.Valid {
		upload.ExpiresAt = expiresAt.Time
	}
	if responseID.Valid {
		id := int(responseID.Int64)
		upload.ResponseID = &id
	}
	return &upload, nil
}

// Attach binds a temporary upload to a response inside the caller's
// transaction. The status condition serializes racing submissions: the
// loser sees zero affected rows and its whole unit rolls back.
func (b *UploadBinder) Attach(ctx context.Context, tx *sql.Tx, uploadID, responseID int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE uploads
		SET status = ?, response_id = ?
		WHERE id = ?
			AND status = ?`,
		model.UploadAttached,
		responseID,
		uploadID,
		model.UploadTemporary,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n < 1 {
		return ErrUploadConflict
	}
	return nil
}
