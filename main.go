package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/miniforms/miniforms/app"
	"github.com/miniforms/miniforms/config"
	"github.com/miniforms/miniforms/database"
	"github.com/miniforms/miniforms/log"
	"github.com/miniforms/miniforms/routes"
	"github.com/miniforms/miniforms/storage"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	files, err := storage.NewFSStore(cfg.UploadDir)
	if err != nil {
		log.Fatal("main.storage:", err)
	}

	app := app.App{
		DB:        db,
		Config:    cfg,
		TokenAuth: jwtauth.New("HS256", []byte(cfg.TokenSecret), nil),
		Files:     files,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
