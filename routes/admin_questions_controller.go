package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/model"
	"github.com/miniforms/miniforms/routes/middlewares"
)

func CreateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}
		if !formOwned(w, r, app, formId, userId) {
			return
		}

		var body struct {
			Type        string `json:"type"`
			Label       string `json:"label"`
			Placeholder string `json:"placeholder"`
			Required    any    `json:"is_required"`
			Position    int    `json:"position"`
			Config      any    `json:"config"`
			Options     []any  `json:"options"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		if body.Type == "" || body.Label == "" {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields",
				fieldDetail("type", "field is required"),
				fieldDetail("label", "field is required"))
			return
		}
		if !model.ValidQuestionType(body.Type) {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid question type",
				fieldDetail("type", "types: text,long_text,checkbox,radio,upload"))
			return
		}

		var config any
		if body.Config != nil {
			encoded, err := json.Marshal(body.Config)
			if err != nil {
				httpx.LogInternalError(w, r, "create_question.parse_config", err)
				return
			}
			config = string(encoded)
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, r, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var questionId int
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO form_questions (form_id, type, label, placeholder, is_required, position, config)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id`,
			formId, body.Type, body.Label, body.Placeholder, toBool(body.Required), body.Position, config,
		).Scan(&questionId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question", err)
			return
		}

		if model.HasOptions(body.Type) && len(body.Options) > 0 {
			stmt, err := tx.PrepareContext(r.Context(), `
				INSERT INTO question_options (question_id, option_label, position)
				VALUES (?, ?, ?)`)
			if err != nil {
				httpx.LogInternalError(w, r, "db.insert_question.options.prepare", err)
				return
			}
			defer stmt.Close()

			position := 0
			for _, opt := range body.Options {
				position++
				label := optionLabel(opt)
				if strings.TrimSpace(label) == "" {
					continue
				}
				_, err = stmt.ExecContext(r.Context(), questionId, label, position)
				if err != nil {
					httpx.LogInternalError(w, r, "db.insert_question.options.insert", err)
					return
				}
			}
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_question.commit", err)
			return
		}

		httpx.Created(w, r, map[string]any{"id": questionId})
	}
}

func UpdateQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		questionId, ok := idParam(w, r)
		if !ok {
			return
		}
		if !questionOwned(w, r, app, questionId, userId) {
			return
		}

		var body map[string]any
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		fields := []string{}
		values := []any{}
		if label, found := body["label"]; found {
			fields = append(fields, "label = ?")
			values = append(values, toString(label))
		}
		if placeholder, found := body["placeholder"]; found {
			fields = append(fields, "placeholder = ?")
			values = append(values, toString(placeholder))
		}
		if required, found := body["is_required"]; found {
			fields = append(fields, "is_required = ?")
			values = append(values, toBool(required))
		}
		if position, found := body["position"]; found {
			fields = append(fields, "position = ?")
			values = append(values, int(toFloat(position)))
		}
		if config, found := body["config"]; found {
			var encoded any
			if config != nil {
				raw, err := json.Marshal(config)
				if err != nil {
					httpx.LogInternalError(w, r, "update_question.parse_config", err)
					return
				}
				encoded = string(raw)
			}
			fields = append(fields, "config = ?")
			values = append(values, encoded)
		}

		if len(fields) == 0 {
			httpx.OK(w, r, map[string]any{"message": "nothing to update"})
			return
		}

		values = append(values, questionId)
		_, err = app.ExecContext(r.Context(),
			"UPDATE form_questions SET "+strings.Join(fields, ", ")+" WHERE id = ?",
			values...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_question", err)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "question updated"})
	}
}

// ArchiveQuestion hides a question from the live schema; collected answers
// stay in place.
func ArchiveQuestion(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		questionId, ok := idParam(w, r)
		if !ok {
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE form_questions
			SET is_archived = 1
			WHERE id = ?
				AND form_id IN (SELECT id FROM forms WHERE user_id = ?)`,
			questionId, userId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.archive_question", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.archive_question.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "archive_question", "QUESTION_NOT_FOUND", questionId)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "question archived"})
	}
}

func CreateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		questionId, ok := idParam(w, r)
		if !ok {
			return
		}

		// option sets exist only on choice questions
		var id int
		err := app.QueryRowContext(r.Context(), `
			SELECT q.id
			FROM form_questions q
			INNER JOIN forms f ON (f.id = q.form_id)
			WHERE q.id = ?
				AND f.user_id = ?
				AND q.type IN (?, ?)`,
			questionId, userId, model.QuestionCheckbox, model.QuestionRadio,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Fail(w, r, http.StatusForbidden, "FORBIDDEN", "no permission or question has no options")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.create_option.ownership", err)
			return
		}

		var body struct {
			Label    string `json:"option_label"`
			Position int    `json:"position"`
		}
		err = render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}
		body.Label = strings.TrimSpace(body.Label)
		if body.Label == "" {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields",
				fieldDetail("option_label", "field is required"))
			return
		}

		var optionId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO question_options (question_id, option_label, position)
			VALUES (?, ?, ?)
			RETURNING id`,
			questionId, body.Label, body.Position,
		).Scan(&optionId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_option", err)
			return
		}

		httpx.Created(w, r, map[string]any{"id": optionId})
	}
}

func UpdateOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		optionId, ok := idParam(w, r)
		if !ok {
			return
		}
		if !optionOwned(w, r, app, optionId, userId) {
			return
		}

		var body map[string]any
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		fields := []string{}
		values := []any{}
		if label, found := body["option_label"]; found {
			fields = append(fields, "option_label = ?")
			values = append(values, toString(label))
		}
		if position, found := body["position"]; found {
			fields = append(fields, "position = ?")
			values = append(values, int(toFloat(position)))
		}

		if len(fields) == 0 {
			httpx.OK(w, r, map[string]any{"message": "nothing to update"})
			return
		}

		values = append(values, optionId)
		_, err = app.ExecContext(r.Context(),
			"UPDATE question_options SET "+strings.Join(fields, ", ")+" WHERE id = ?",
			values...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_option", err)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "option updated"})
	}
}

func DeleteOption(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		optionId, ok := idParam(w, r)
		if !ok {
			return
		}
		if !optionOwned(w, r, app, optionId, userId) {
			return
		}

		_, err := app.ExecContext(r.Context(), `
			DELETE FROM question_options WHERE id = ?`,
			optionId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.delete_option", err)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "option removed"})
	}
}

func questionOwned(w http.ResponseWriter, r *http.Request, app app.App, questionId, userId int) bool {
	var id int
	err := app.QueryRowContext(r.Context(), `
		SELECT q.id
		FROM form_questions q
		INNER JOIN forms f ON (f.id = q.form_id)
		WHERE q.id = ?
			AND f.user_id = ?`,
		questionId, userId,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.Fail(w, r, http.StatusForbidden, "FORBIDDEN", "no permission")
		return false
	}
	if err != nil {
		httpx.LogInternalError(w, r, "db.question.ownership", err)
		return false
	}
	return true
}

func optionOwned(w http.ResponseWriter, r *http.Request, app app.App, optionId, userId int) bool {
	var id int
	err := app.QueryRowContext(r.Context(), `
		SELECT o.id
		FROM question_options o
		INNER JOIN form_questions q ON (q.id = o.question_id)
		INNER JOIN forms f ON (f.id = q.form_id)
		WHERE o.id = ?
			AND f.user_id = ?`,
		optionId, userId,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.Fail(w, r, http.StatusForbidden, "FORBIDDEN", "no permission")
		return false
	}
	if err != nil {
		httpx.LogInternalError(w, r, "db.option.ownership", err)
		return false
	}
	return true
}

func optionLabel(opt any) string {
	if record, ok := opt.(map[string]any); ok {
		return toString(record["option_label"])
	}
	return toString(opt)
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case string:
		return v == "true" || v == "1"
	}
	return false
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		n, _ := v.Float64()
		return n
	}
	return 0
}
