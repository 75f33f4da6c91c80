package app

import (
	"database/sql"

	"github.com/go-chi/jwtauth"
	"github.com/go-chi/oauth"

	"github.com/joehsn/formify/config"
	"github.com/joehsn/formify/database"
	"github.com/joehsn/formify/httpx"
)

// App bundles what request handlers need.
type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config

	Forms     *database.Forms
	Responses *database.Responses
	Users     *database.Users
	Tokens    *database.Tokens

	// ResetAuth signs password reset tokens.
	ResetAuth *jwtauth.JWTAuth
}

func New(db *sql.DB, cfg config.Config) App {
	return App{
		DB:           db,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
		Forms:        database.NewForms(db),
		Responses:    database.NewResponses(db),
		Users:        database.NewUsers(db),
		Tokens:       database.NewTokens(db),
		ResetAuth:    jwtauth.New("HS256", []byte("reset:"+cfg.TokenSecret), nil),
	}
}
