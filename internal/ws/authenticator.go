package ws

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/avollmer/taskstream/internal/service/auth"
)

// TokenAuthenticator verifies a handshake credential and resolves it to a
// user identity. It is the only blocking step of the websocket handshake.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (uuid.UUID, error)
}

// JWTAuthenticator adapts the application's JWT service to the websocket
// handshake. All verification failures collapse into ErrAuthenticationFailed
// so a client cannot distinguish a malformed token from an expired or forged
// one.
type JWTAuthenticator struct {
	jwtService auth.JWTService
}

var _ TokenAuthenticator = (*JWTAuthenticator)(nil)

// NewJWTAuthenticator creates a TokenAuthenticator backed by the given JWT
// service.
func NewJWTAuthenticator(jwtService auth.JWTService) *JWTAuthenticator {
	return &JWTAuthenticator{jwtService: jwtService}
}

// Authenticate validates an access token and returns the user it was issued
// for.
func (a *JWTAuthenticator) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	claims, err := a.jwtService.ValidateToken(ctx, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return claims.UserID, nil
}
