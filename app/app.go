package app

import (
	"database/sql"

	"github.com/go-chi/jwtauth/v5"

	"github.com/miniforms/miniforms/config"
	"github.com/miniforms/miniforms/storage"
)

type App struct {
	*sql.DB
	config.Config
	TokenAuth *jwtauth.JWTAuth
	Files     storage.BlobStore
}
