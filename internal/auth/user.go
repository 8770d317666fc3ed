package auth

import (
	"context"
	"time"
)

type ServiceAPI interface {
	Authenticate(ctx context.Context, dto LoginDTO) (*LoginResponse, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

// Credentials is the stored login material of a user.
type Credentials struct {
	Identity
	PasswordHash string
}

type RepositoryAPI interface {
	// GetCredentials returns ErrUserNotFound for unknown emails.
	GetCredentials(ctx context.Context, email string) (*Credentials, error)
	GetIdentity(ctx context.Context, userID int64) (*Identity, error)
}

type TokenGeneratorAPI interface {
	GenerateAccessToken(identity Identity) (string, error)
	GenerateRefreshToken(identity Identity) (string, error)
	ValidateToken(tokenString string, expected TokenType) (*Claims, error)
	AccessTTL() time.Duration
}
