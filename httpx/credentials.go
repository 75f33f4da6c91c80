package httpx

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/oauth"

	"github.com/joehsn/formify/database"
)

// ClaimUserID is the access token claim holding the owner id.
const ClaimUserID = "uid"

// RefreshTTL bounds how long an unused refresh token stays valid.
const RefreshTTL = 8760 * time.Hour

type credentialsVerifier struct {
	users  *database.Users
	tokens *database.Tokens
}

// CredentialsVerifier authenticates users by email and password and keeps
// track of issued refresh tokens so each can be exchanged once.
func CredentialsVerifier(db *sql.DB) oauth.CredentialsVerifier {
	return &credentialsVerifier{database.NewUsers(db), database.NewTokens(db)}
}

func (cs *credentialsVerifier) ValidateUser(username string, password string, scope string, r *http.Request) error {
	_, err := cs.users.Authenticate(r.Context(), username, password)
	return err
}

func (cs *credentialsVerifier) StoreTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	return cs.tokens.Store(
		context.Background(),
		database.NormalizeEmail(credential),
		tokenID,
		refreshTokenID,
		time.Now().Add(RefreshTTL),
	)
}

func (cs *credentialsVerifier) ValidateTokenID(tokenType oauth.TokenType, credential string, tokenID string, refreshTokenID string) error {
	err := cs.tokens.Consume(context.Background(), database.NormalizeEmail(credential), tokenID, refreshTokenID)
	if errors.Is(err, database.ErrNotFound) {
		return errors.New("could not refresh")
	}
	return err
}

func (cs *credentialsVerifier) AddClaims(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	u, err := cs.users.FindByEmail(r.Context(), credential)
	if err != nil {
		return nil, err
	}
	return map[string]string{ClaimUserID: u.ID}, nil
}

func (*credentialsVerifier) AddProperties(tokenType oauth.TokenType, credential string, tokenID string, scope string, r *http.Request) (map[string]string, error) {
	return map[string]string{}, nil
}

func (*credentialsVerifier) ValidateClient(clientID string, clientSecret string, scope string, r *http.Request) error {
	return errors.New("not supported")
}
