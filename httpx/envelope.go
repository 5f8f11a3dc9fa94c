package httpx

import (
	"net/http"

	"github.com/go-chi/render"
)

// Every endpoint speaks the same JSON envelope:
// {"ok":true,"data":...} or {"ok":false,"error":{"code","message","details"}}.

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details []any  `json:"details"`
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"ok": true, "data": data})
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]any{"ok": true, "data": data})
}

func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...any) {
	if details == nil {
		details = []any{}
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]any{
		"ok": false,
		"error": ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
