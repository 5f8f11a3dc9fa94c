package submission

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/miniforms/miniforms/model"
)

// Question is the validation-time view of one live form question.
type Question struct {
	ID       int
	Type     string
	Label    string
	Required bool
	Position int
	Config   map[string]any
	Options  map[int]string // option id -> label, choice types only
}

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// LoadSchema returns the form's non-archived questions ordered by position,
// with option label maps eagerly loaded for choice questions.
func LoadSchema(ctx context.Context, db Querier, formID int) ([]Question, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, type, label, is_required, position, config
		FROM form_questions
		WHERE form_id = ?
			AND is_archived = 0
		ORDER BY position ASC`,
		formID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []Question
	var choiceIDs []int
	for rows.Next() {
		q := Question{}
		var config sql.NullString
		err = rows.Scan(&q.ID, &q.Type, &q.Label, &q.Required, &q.Position, &config)
		if err != nil {
			return nil, err
		}

		if config.Valid && config.String != "" {
			err = json.Unmarshal([]byte(config.String), &q.Config)
			if err != nil {
				return nil, err
			}
		}
		if model.HasOptions(q.Type) {
			q.Options = map[int]string{}
			choiceIDs = append(choiceIDs, q.ID)
		}

		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(choiceIDs) > 0 {
		err = loadOptions(ctx, db, questions, choiceIDs)
		if err != nil {
			return nil, err
		}
	}

	return questions, nil
}

func loadOptions(ctx context.Context, db Querier, questions []Question, choiceIDs []int) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(choiceIDs)), ",")
	args := make([]any, len(choiceIDs))
	for i, id := range choiceIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, question_id, option_label
		FROM question_options
		WHERE question_id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	byID := map[int]*Question{}
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	for rows.Next() {
		var optionID, questionID int
		var label string
		err = rows.Scan(&optionID, &questionID, &label)
		if err != nil {
			return err
		}
		if q := byID[questionID]; q != nil && q.Options != nil {
			q.Options[optionID] = label
		}
	}
	return rows.Err()
}
