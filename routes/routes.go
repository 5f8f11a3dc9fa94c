package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/httpx"
	"github.com/miniforms/miniforms/routes/middlewares"
)

func Wire(app app.App) http.Handler {
	root := chi.NewRouter()
	root.Use(middleware.Logger, middleware.Recoverer)
	root.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
	}))

	// set before Mount so the api subrouter inherits the envelope 404
	root.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Fail(w, r, http.StatusNotFound, "ROUTE_NOT_FOUND", "route not found")
	})

	root.Mount("/api", apiRouter(app))

	return root
}

func apiRouter(app app.App) http.Handler {
	api := chi.NewRouter()

	api.Post("/login", Login(app))
	api.Post("/register", Register(app))

	api.Route("/public", func(r chi.Router) {
		r.Get("/forms/{slug}", PublicGetForm(app))
		r.Post("/forms/{slug}/responses", PublicSubmitForm(app))
		r.Post("/uploads", PublicCreateUpload(app))
	})

	api.Route("/admin", func(r chi.Router) {
		r.Use(middlewares.Auth(app.TokenAuth)...)

		// CRUD forms
		r.Get("/forms", ListForms(app))
		r.Post("/forms", CreateForm(app))
		r.Get("/forms/archived", ListArchivedForms(app))
		r.Get(`/forms/{id:^\d+$}`, GetFormById(app))
		r.Put(`/forms/{id:^\d+$}`, UpdateForm(app))
		r.Post(`/forms/{id:^\d+$}/publish`, PublishForm(app))
		r.Post(`/forms/{id:^\d+$}/unpublish`, UnpublishForm(app))
		r.Post(`/forms/{id:^\d+$}/archive`, ArchiveForm(app))

		// questions and options
		r.Post(`/forms/{id:^\d+$}/questions`, CreateQuestion(app))
		r.Put(`/questions/{id:^\d+$}`, UpdateQuestion(app))
		r.Post(`/questions/{id:^\d+$}/archive`, ArchiveQuestion(app))
		r.Post(`/questions/{id:^\d+$}/options`, CreateOption(app))
		r.Put(`/options/{id:^\d+$}`, UpdateOption(app))
		r.Delete(`/options/{id:^\d+$}`, DeleteOption(app))

		// collected responses and files
		r.Get(`/forms/{id:^\d+$}/responses`, ListFormResponses(app))
		r.Get(`/responses/{id:^\d+$}`, GetResponseById(app))
		r.Get(`/files/{id:^\d+$}`, DownloadFile(app))
	})

	return api
}
