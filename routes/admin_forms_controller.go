package routes

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/model"
	"github.com/miniforms/miniforms/routes/middlewares"
)

func ListForms(app app.App) http.HandlerFunc {
	return listForms(app, false)
}

func ListArchivedForms(app app.App) http.HandlerFunc {
	return listForms(app, true)
}

func listForms(app app.App, archived bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, title, description, slug, theme_settings, is_published, is_archived, created_at
			FROM forms
			WHERE user_id = ?
				AND is_archived = ?
			ORDER BY created_at DESC`,
			userId, archived,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_forms", err)
			return
		}
		defer rows.Close()

		forms := []model.Form{}
		for rows.Next() {
			f := model.Form{}
			var theme sql.NullString
			err = rows.Scan(&f.ID, &f.Title, &f.Description, &f.Slug, &theme, &f.Published, &f.Archived, &f.CreatedAt)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_forms.scan", err)
				return
			}
			if theme.Valid && theme.String != "" {
				json.Unmarshal([]byte(theme.String), &f.Theme)
			}
			forms = append(forms, f)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_forms.rows", err)
			return
		}

		httpx.OK(w, r, forms)
	}
}

func CreateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)

		var body struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Theme       any    `json:"theme"`
		}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}
		if strings.TrimSpace(body.Title) == "" {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields",
				fieldDetail("title", "field is required"))
			return
		}

		theme, err := marshalTheme(body.Theme)
		if err != nil {
			httpx.LogInternalError(w, r, "create_form.parse_theme", err)
			return
		}

		slug, err := randomSlug()
		if err != nil {
			httpx.LogInternalError(w, r, "create_form.slug", err)
			return
		}

		var formId int
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO forms (user_id, title, description, slug, theme_settings, is_published)
			VALUES (?, ?, ?, ?, ?, 0)
			RETURNING id`,
			userId, body.Title, body.Description, slug, theme,
		).Scan(&formId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.insert_form", err)
			return
		}

		httpx.Created(w, r, map[string]any{
			"id":           formId,
			"slug":         slug,
			"is_published": false,
		})
	}
}

func GetFormById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}

		form := model.Form{}
		var theme sql.NullString
		err := app.QueryRowContext(r.Context(), `
			SELECT id, title, description, slug, theme_settings, is_published, is_archived, created_at
			FROM forms
			WHERE id = ?
				AND user_id = ?`,
			formId, userId,
		).Scan(&form.ID, &form.Title, &form.Description, &form.Slug, &theme, &form.Published, &form.Archived, &form.CreatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "get_form", "FORM_NOT_FOUND", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form", err)
			return
		}

		if theme.Valid && theme.String != "" {
			err = json.Unmarshal([]byte(theme.String), &form.Theme)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_form.parse_theme", err)
				return
			}
		}

		form.Questions, err = loadFormQuestions(r, app, form.ID)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_form.questions", err)
			return
		}

		httpx.OK(w, r, form)
	}
}

func UpdateForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}

		var body map[string]any
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		if !formOwned(w, r, app, formId, userId) {
			return
		}

		fields := []string{}
		values := []any{}
		if title, found := body["title"]; found {
			fields = append(fields, "title = ?")
			values = append(values, toString(title))
		}
		if description, found := body["description"]; found {
			fields = append(fields, "description = ?")
			values = append(values, toString(description))
		}
		if theme, found := body["theme"]; found {
			encoded, err := marshalTheme(theme)
			if err != nil {
				httpx.LogInternalError(w, r, "update_form.parse_theme", err)
				return
			}
			fields = append(fields, "theme_settings = ?")
			values = append(values, encoded)
		}

		if len(fields) == 0 {
			httpx.OK(w, r, map[string]any{"message": "nothing to update"})
			return
		}

		values = append(values, formId, userId)
		_, err = app.ExecContext(r.Context(),
			"UPDATE forms SET "+strings.Join(fields, ", ")+" WHERE id = ? AND user_id = ?",
			values...,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.update_form", err)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "form updated"})
	}
}

func PublishForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}

		var slug string
		var published bool
		err := app.QueryRowContext(r.Context(), `
			SELECT slug, is_published FROM forms WHERE id = ? AND user_id = ?`,
			formId, userId,
		).Scan(&slug, &published)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.LogNotFound(w, r, "publish_form", "FORM_NOT_FOUND", formId)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.publish_form", err)
			return
		}

		if published {
			httpx.OK(w, r, map[string]any{
				"message":      "already published",
				"slug":         slug,
				"is_published": true,
			})
			return
		}

		_, err = app.ExecContext(r.Context(), `
			UPDATE forms SET is_published = 1 WHERE id = ? AND user_id = ?`,
			formId, userId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.publish_form.update", err)
			return
		}

		httpx.OK(w, r, map[string]any{
			"message":    "form published",
			"slug":       slug,
			"public_url": app.Url() + "/api/public/forms/" + slug,
		})
	}
}

func UnpublishForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}

		if !formOwned(w, r, app, formId, userId) {
			return
		}

		_, err := app.ExecContext(r.Context(), `
			UPDATE forms SET is_published = 0 WHERE id = ? AND user_id = ?`,
			formId, userId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.unpublish_form", err)
			return
		}

		httpx.OK(w, r, map[string]any{
			"message":      "form unpublished",
			"is_published": false,
		})
	}
}

// ArchiveForm also unpublishes: archived forms must stop resolving publicly.
func ArchiveForm(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}

		res, err := app.ExecContext(r.Context(), `
			UPDATE forms
			SET is_archived = 1, is_published = 0
			WHERE id = ? AND user_id = ?`,
			formId, userId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.archive_form", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, r, "db.archive_form.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, r, "archive_form", "FORM_NOT_FOUND", formId)
			return
		}

		httpx.OK(w, r, map[string]any{"message": "form archived"})
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid id")
		return 0, false
	}
	return id, true
}

func formOwned(w http.ResponseWriter, r *http.Request, app app.App, formId, userId int) bool {
	var id int
	err := app.QueryRowContext(r.Context(), `
		SELECT id FROM forms WHERE id = ? AND user_id = ?`,
		formId, userId,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		httpx.LogNotFound(w, r, "form.ownership", "FORM_NOT_FOUND", formId)
		return false
	}
	if err != nil {
		httpx.LogInternalError(w, r, "db.form.ownership", err)
		return false
	}
	return true
}

func marshalTheme(theme any) (string, error) {
	if theme == nil {
		return "{}", nil
	}
	encoded, err := json.Marshal(theme)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func randomSlug() (string, error) {
	buf := make([]byte, 8)
	_, err := rand.Read(buf)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func toString(value any) string {
	s, _ := value.(string)
	return s
}
