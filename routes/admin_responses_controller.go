package routes

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/model"
	"github.com/miniforms/miniforms/routes/middlewares"
)

func ListFormResponses(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		formId, ok := idParam(w, r)
		if !ok {
			return
		}
		if !formOwned(w, r, app, formId, userId) {
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, submitted_at, ip_address
			FROM form_responses
			WHERE form_id = ?
			ORDER BY submitted_at DESC`,
			formId,
		)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_responses", err)
			return
		}
		defer rows.Close()

		responses := []model.Response{}
		for rows.Next() {
			resp := model.Response{}
			err = rows.Scan(&resp.ID, &resp.SubmittedAt, &resp.IP)
			if err != nil {
				httpx.LogInternalError(w, r, "db.get_responses.scan", err)
				return
			}
			responses = append(responses, resp)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, r, "db.get_responses.rows", err)
			return
		}

		httpx.OK(w, r, responses)
	}
}

func GetResponseById(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userId := middlewares.UserID(r)
		responseId, ok := idParam(w, r)
		if !ok {
			return
		}

		resp := model.Response{}
		err := app.QueryRowContext(r.Context(), `
			SELECT r.id, r.form_id, r.submitted_at
			FROM form_responses r
			INNER JOIN forms f ON (f.id = r.form_id)
			WHERE r.id = ?
				AND f.user_id = ?`,
			responseId, userId,
		).Scan(&resp.ID, &resp.FormID, &resp.SubmittedAt)
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Fail(w, r, http.StatusForbidden, "FORBIDDEN", "no permission")
			return
		}
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response", err)
			return
		}

		answers, err := loadResponseAnswers(r, app, responseId)
		if err != nil {
			httpx.LogInternalError(w, r, "db.get_response.answers", err)
			return
		}

		httpx.OK(w, r, map[string]any{
			"response": resp,
			"answers":  answers,
		})
	}
}

func loadResponseAnswers(r *http.Request, app app.App, responseId int) ([]model.Answer, error) {
	rows, err := app.QueryContext(r.Context(), `
		SELECT a.id, a.question_id, a.answer_value, a.file_path, q.label, q.type
		FROM response_answers a
		INNER JOIN form_questions q ON (q.id = a.question_id)
		WHERE a.response_id = ?
		ORDER BY q.position ASC`,
		responseId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := []model.Answer{}
	for rows.Next() {
		a := model.Answer{}
		err = rows.Scan(&a.ID, &a.QuestionID, &a.Value, &a.FilePath, &a.Label, &a.Type)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	for i := range answers {
		err = annotateAnswer(r, app, &answers[i])
		if err != nil {
			return nil, err
		}
	}
	return answers, nil
}

// annotateAnswer resolves checkbox option ids to labels and points upload
// answers at their download endpoint.
func annotateAnswer(r *http.Request, app app.App, a *model.Answer) error {
	switch a.Type {
	case model.QuestionCheckbox:
		if a.Value == nil || *a.Value == "" {
			return nil
		}
		var optionIds []int
		err := json.Unmarshal([]byte(*a.Value), &optionIds)
		if err != nil || len(optionIds) == 0 {
			return nil
		}

		labels, err := optionLabels(r, app, optionIds)
		if err != nil {
			return err
		}
		parsed := make([]string, len(optionIds))
		for i, optionId := range optionIds {
			label, found := labels[optionId]
			if !found {
				label = "#" + strconv.Itoa(optionId)
			}
			parsed[i] = label
		}
		a.Parsed = parsed

	case model.QuestionUpload:
		if a.Value == nil {
			return nil
		}
		uploadId, err := strconv.Atoi(*a.Value)
		if err != nil || uploadId <= 0 {
			return nil
		}
		a.UploadID = uploadId
		a.Download = fmt.Sprintf("/api/admin/files/%d", uploadId)
	}
	return nil
}

func optionLabels(r *http.Request, app app.App, optionIds []int) (map[int]string, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(optionIds)), ",")
	args := make([]any, len(optionIds))
	for i, id := range optionIds {
		args[i] = id
	}

	rows, err := app.QueryContext(r.Context(), `
		SELECT id, option_label
		FROM question_options
		WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	labels := map[int]string{}
	for rows.Next() {
		var id int
		var label string
		err = rows.Scan(&id, &label)
		if err != nil {
			return nil, err
		}
		labels[id] = label
	}
	return labels, rows.Err()
}
