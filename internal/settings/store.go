// Package settings persists per-user UI preferences in redis.
package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/waveafterwave69/weather-app/pkg/errors"
)

const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

type Store struct {
	redisClient *redis.Client
}

func NewStore(redisClient *redis.Client) *Store {
	return &Store{redisClient: redisClient}
}

// GetTheme returns the stored theme for the user, defaulting to light when
// nothing has been saved yet.
func (s *Store) GetTheme(ctx context.Context, userID uuid.UUID) (string, error) {
	theme, err := s.redisClient.Get(ctx, themeKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return ThemeLight, nil
	}
	if err != nil {
		return "", err
	}
	return theme, nil
}

func (s *Store) SetTheme(ctx context.Context, userID uuid.UUID, theme string) error {
	if theme != ThemeLight && theme != ThemeDark {
		return apperrors.BadRequest("theme must be \"light\" or \"dark\"")
	}
	return s.redisClient.Set(ctx, themeKey(userID), theme, 0).Err()
}

func themeKey(userID uuid.UUID) string {
	return fmt.Sprintf("theme:%s", userID)
}
