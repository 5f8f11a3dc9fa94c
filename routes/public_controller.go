package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/log"
	"github.com/miniforms/miniforms/model"
	"github.com/miniforms/miniforms/submission"
)

func PublicGetForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		form := model.Form{}
		var theme sql.NullString
		err := app.QueryRowContext(r.Context(), `
			SELECT id, title, description, theme_settings
			FROM forms
			WHERE slug = ?
				AND is_published = 1
				AND is_archived = 0`,
			slug,
		).Scan(&form.ID, &form.Title, &form.Description, &theme)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "public.get_form", "FORM_NOT_FOUND", slug)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.public.get_form", err)
			return
		}

		if theme.Valid && theme.String != "" {
			err = json.Unmarshal([]byte(theme.String), &form.Theme)
			if err != nil {
				httpx.LogInternalError(w, r, "db.public.get_form.parse_theme", err)
				return
			}
		}
		form.Published = true

		form.Questions, err = loadFormQuestions(r, app, form.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.public.get_form.questions", err)
			return
		}

		httpx.OK(w, r, form)
	}
}

func loadFormQuestions(r *http.Request, app app.App, formID int) ([]model.Question, error) {
	rows, err := app.QueryContext(r.Context(), `
		SELECT id, type, label, placeholder, is_required, position, config
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

	questions := []model.Question{}
	for rows.Next() {
		q := model.Question{}
		var config sql.NullString
		err = rows.Scan(&q.ID, &q.Type, &q.Label, &q.Placeholder, &q.Required, &q.Position, &config)
		if err != nil {
			return nil, err
		}
		if config.Valid && config.String != "" {
			err = json.Unmarshal([]byte(config.String), &q.Config)
			if err != nil {
				return nil, err
			}
		}
		questions = append(questions, q)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range questions {
		if !model.HasOptions(questions[i].Type) {
			continue
		}
		questions[i].Options, err = loadQuestionOptions(r, app, questions[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return questions, nil
}

func loadQuestionOptions(r *http.Request, app app.App, questionID int) ([]model.Option, error) {
	rows, err := app.QueryContext(r.Context(), `
		SELECT id, option_label, position
		FROM question_options
		WHERE question_id = ?
		ORDER BY position ASC`,
		questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	options := []model.Option{}
	for rows.Next() {
		o := model.Option{}
		err = rows.Scan(&o.ID, &o.Label, &o.Position)
		if err != nil {
			return nil, err
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

func PublicSubmitForm(app app.App) http.HandlerFunc {
	service := submission.NewService(app.DB)

	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")

		var body struct {
			Answers any `json:"answers"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		meta := submission.Meta{
			IP:        clientIP(r),
			UserAgent: r.UserAgent(),
		}

		responseID, err := service.Submit(r.Context(), slug, body.Answers, meta)

		var validationErr *submission.ValidationError
		switch {
		case errors.Is(err, submission.ErrFormNotFound):
			httpx.Fail(w, r, http.StatusNotFound, "FORM_NOT_FOUND", "form not found or not published")
		case errors.As(err, &validationErr):
			details := make([]any, len(validationErr.Fields))
			for i, fieldErr := range validationErr.Fields {
				details[i] = fieldErr
			}
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid answers", details...)
		case err != nil:
			log.Errorf("public.submit: %s", err)
			httpx.Fail(w, r, http.StatusInternalServerError, "SUBMIT_FAILED", "could not process response")
		default:
			httpx.Created(w, r, map[string]any{
				"message":     "response submitted",
				"response_id": responseID,
			})
		}
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
