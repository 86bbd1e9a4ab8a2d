package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/humrah/backend/internal/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and parses the bearer tokens minted by the account
// service. This backend only parses; NewJWT exists for tests and tooling.
type TokenManager interface {
	NewJWT(userID uuid.UUID, role string) (string, time.Duration, error)
	Parse(accessToken string) (*Claims, error)
}

type Claims struct {
	UserID uuid.UUID
	Role   string
}

type Manager struct {
	signingKey     string
	accessTokenTTL time.Duration
}

func NewManager(cfg config.JWTConfig) (*Manager, error) {
	if cfg.SigningKey == "" {
		return nil, errors.New("empty signing key")
	}

	if cfg.AccessTokenTTL == 0 {
		return nil, errors.New("empty access token ttl")
	}

	return &Manager{
		signingKey:     cfg.SigningKey,
		accessTokenTTL: cfg.AccessTokenTTL,
	}, nil
}

func (m *Manager) NewJWT(userID uuid.UUID, role string) (string, time.Duration, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp":  jwt.NewNumericDate(time.Now().Add(m.accessTokenTTL)),
		"sub":  userID.String(),
		"role": role,
	})

	accessToken, err := token.SignedString([]byte(m.signingKey))
	if err != nil {
		return "", 0, errors.New("sign jwt failed")
	}

	return accessToken, m.accessTokenTTL, nil
}

func (m *Manager) Parse(accessToken string) (*Claims, error) {
	token, err := jwt.Parse(accessToken, func(token *jwt.Token) (i interface{}, err error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return []byte(m.signingKey), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("error get user claims from token")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, errors.New("subject claim missing")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil, fmt.Errorf("subject claim parse: %w", err)
	}

	role, _ := claims["role"].(string)

	return &Claims{UserID: id, Role: role}, nil
}
