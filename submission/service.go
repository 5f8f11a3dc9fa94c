package submission

import (
	"context"
	"database/sql"
	"errors"
)

// Service runs the whole submission pipeline for one public request:
// resolve form, load schema, normalize, validate, write. Validation
// failures short-circuit before anything is persisted.
type Service struct {
	DB     *sql.DB
	Binder *UploadBinder
	Writer *Writer
}

func NewService(db *sql.DB) *Service {
	binder := &UploadBinder{DB: db}
	return &Service{
		DB:     db,
		Binder: binder,
		Writer: &Writer{DB: db, Binder: binder},
	}
}

// ResolveForm maps a public slug to a live form id.
func (s *Service) ResolveForm(ctx context.Context, slug string) (int, error) {
	var formID int
	err := s.DB.QueryRowContext(ctx, `
		SELECT id
		FROM forms
		WHERE slug = ?
			AND is_published = 1
			AND is_archived = 0`,
		slug,
	).Scan(&formID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrFormNotFound
	}
	if err != nil {
		return 0, err
	}
	return formID, nil
}

func (s *Service) Submit(ctx context.Context, slug string, rawAnswers any, meta Meta) (int, error) {
	formID, err := s.ResolveForm(ctx, slug)
	if err != nil {
		return 0, err
	}

	questions, err := LoadSchema(ctx, s.DB, formID)
	if err != nil {
		return 0, err
	}

	normalized := Normalize(rawAnswers)

	answers, fieldErrs, err := Validate(ctx, questions, normalized, s.Binder)
	if err != nil {
		return 0, err
	}
	if len(fieldErrs) > 0 {
		return 0, &ValidationError{Fields: fieldErrs}
	}

	return s.Writer.Write(ctx, formID, meta, answers)
}
