package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/zawomons/battle-server/internal/config"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrPlayerNotFound = errors.New("player not found")
)

// AuthService validates the bearer tokens the account system issues and
// resolves them to players. Credential handling lives outside this server;
// IssueToken exists for tests and local development.
type AuthService struct {
	playerRepo repository.PlayerRepository
	cfg        *config.Config
}

func NewAuthService(playerRepo repository.PlayerRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		playerRepo: playerRepo,
		cfg:        cfg,
	}
}

func (s *AuthService) IssueToken(player *domain.Player) (string, error) {
	claims := jwt.MapClaims{
		"sub":  player.ID.String(),
		"name": player.Username,
		"exp":  time.Now().Add(time.Duration(s.cfg.JWTExpirationHours) * time.Hour).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// ValidateToken parses the token and returns the player id it carries.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.cfg.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	playerID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return playerID, nil
}

func (s *AuthService) GetPlayerByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	player, err := s.playerRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return player, nil
}
