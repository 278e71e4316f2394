package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// ErrTicketInvalidated means a newer registration replaced this ticket.
var ErrTicketInvalidated = errors.New("session ticket invalidated")

// Claims carries the candidate identity through the WebSocket upgrade.
type Claims struct {
	jwt.RegisteredClaims
	CandidateID uuid.UUID `json:"candidate_id"`
	FullName    string    `json:"name"`
	Email       string    `json:"email"`
}

// Candidate rebuilds the candidate the ticket was issued to.
func (c *Claims) Candidate() model.Candidate {
	return model.Candidate{ID: c.CandidateID, FullName: c.FullName, Email: c.Email}
}

// AuthService issues and checks candidate session tickets.
type AuthService struct {
	cfg *config.Config
	rdb redis.UniversalClient
	now func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(cfg *config.Config, rdb redis.UniversalClient) *AuthService {
	return &AuthService{cfg: cfg, rdb: rdb, now: time.Now}
}

// IssueCandidateToken signs a ticket and makes it the candidate's only valid
// one. Registering again invalidates the previous ticket.
func (s *AuthService) IssueCandidateToken(ctx context.Context, c model.Candidate) (string, error) {
	jti := uuid.New().String()
	now := s.now()

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   c.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTExpiry)),
		},
		CandidateID: c.ID,
		FullName:    c.FullName,
		Email:       c.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	key := config.CacheKey.CandidateTicketKey(c.ID.String())
	if err := s.rdb.Set(ctx, key, jti, s.cfg.JWTExpiry).Err(); err != nil {
		return "", fmt.Errorf("store ticket: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a JWT, returning the claims.
func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.CandidateID == uuid.Nil {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// ValidateTicket checks that claims still name the candidate's current ticket.
func (s *AuthService) ValidateTicket(ctx context.Context, claims *Claims) error {
	key := config.CacheKey.CandidateTicketKey(claims.CandidateID.String())
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrTicketInvalidated
		}
		return fmt.Errorf("check ticket: %w", err)
	}
	if stored != claims.ID {
		return ErrTicketInvalidated
	}
	return nil
}
