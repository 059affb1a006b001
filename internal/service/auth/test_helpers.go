package auth

import "time"

// NewTestJWTService creates a JWT service with an injectable time function
// for deterministic expiry testing. Refresh token lifetime is fixed at four
// times the access token lifetime.
func NewTestJWTService(
	secret string,
	tokenLifetime time.Duration,
	timeFunc func() time.Time,
) JWTService {
	return &hmacJWTService{
		signingKey:           []byte(secret),
		tokenLifetime:        tokenLifetime,
		refreshTokenLifetime: 4 * tokenLifetime,
		timeFunc:             timeFunc,
		clockSkew:            0,
		revocations:          NewRevocationList(),
	}
}
