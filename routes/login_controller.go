package routes

import (
	"database/sql"
	"errors"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/crypto/bcrypt"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/log"
)

type credentials struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := credentials{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		body.Email = strings.TrimSpace(body.Email)
		if details := requireFields(map[string]string{
			"email":    body.Email,
			"password": body.Password,
		}); len(details) > 0 {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields", details...)
			return
		}
		if _, err := mail.ParseAddress(body.Email); err != nil {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields",
				fieldDetail("email", "invalid format"))
			return
		}

		var userId int
		var email string
		var hash []byte
		err = app.QueryRowContext(r.Context(), `
			SELECT id, email, password FROM users WHERE email = ?`,
			body.Email,
		).Scan(&userId, &email, &hash)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			httpx.LogInternalError(w, r, "db.login", err)
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword(hash, []byte(body.Password)) != nil {
			httpx.Fail(w, r, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "invalid credentials")
			return
		}

		now := time.Now()
		expiresAt := now.Add(app.TokenTTL)
		_, token, err := app.TokenAuth.Encode(map[string]any{
			"user_id": userId,
			"email":   email,
			"iat":     now.Unix(),
			"exp":     expiresAt.Unix(),
		})
		if err != nil {
			httpx.LogInternalError(w, r, "login.encode_token", err)
			return
		}

		httpx.OK(w, r, map[string]any{
			"token":      token,
			"expires_in": int(app.TokenTTL.Seconds()),
			"expires_at": expiresAt.Unix(),
		})
	}
}

// Register is only reachable when explicitly enabled by config.
func Register(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !app.AllowRegister {
			httpx.Fail(w, r, http.StatusForbidden, "REGISTER_DISABLED", "registration is disabled in this environment")
			return
		}

		body := credentials{}
		err := render.DecodeJSON(r.Body, &body)
		if err != nil {
			httpx.Fail(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed JSON body")
			return
		}

		body.Name = strings.TrimSpace(body.Name)
		body.Email = strings.TrimSpace(body.Email)
		if details := requireFields(map[string]string{
			"name":     body.Name,
			"email":    body.Email,
			"password": body.Password,
		}); len(details) > 0 {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields", details...)
			return
		}
		if _, err := mail.ParseAddress(body.Email); err != nil {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid fields",
				fieldDetail("email", "invalid format"))
			return
		}
		if len(body.Password) < 6 {
			httpx.Fail(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "weak password",
				fieldDetail("password", "minimum 6 characters"))
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			httpx.LogInternalError(w, r, "register.hash", err)
			return
		}

		_, err = app.ExecContext(r.Context(), `
			INSERT INTO users (name, email, password) VALUES (?, ?, ?)`,
			body.Name, body.Email, string(hash),
		)
		if err != nil {
			log.Errorf("db.register: %s", err)
			httpx.Fail(w, r, http.StatusInternalServerError, "REGISTER_FAILED", "could not register user")
			return
		}

		httpx.Created(w, r, map[string]any{"message": "user registered"})
	}
}

func requireFields(fields map[string]string) (details []any) {
	for _, field := range []string{"name", "email", "password"} {
		value, checked := fields[field]
		if checked && value == "" {
			details = append(details, fieldDetail(field, "field is required"))
		}
	}
	return
}

func fieldDetail(field, message string) map[string]string {
	return map[string]string{"field": field, "message": message}
}
