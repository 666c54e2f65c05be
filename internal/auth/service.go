package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/waveafterwave69/weather-app/internal/users"
	apperrors "github.com/waveafterwave69/weather-app/pkg/errors"
)

const codeEmailVerify = "email_verify"

type Options struct {
	PrivateKey      *rsa.PrivateKey
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	EmailVerifyTTL  time.Duration
	LoginMaxFails   int
	LoginLockout    time.Duration
}

type Service struct {
	redisClient *redis.Client
	opts        Options
}

func NewService(redisClient *redis.Client, opts Options) *Service {
	if opts.AccessTokenTTL == 0 {
		opts.AccessTokenTTL = 15 * time.Minute
	}
	if opts.RefreshTokenTTL == 0 {
		opts.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if opts.EmailVerifyTTL == 0 {
		opts.EmailVerifyTTL = 24 * time.Hour
	}
	if opts.LoginMaxFails == 0 {
		opts.LoginMaxFails = 5
	}
	if opts.LoginLockout == 0 {
		opts.LoginLockout = 15 * time.Minute
	}
	return &Service{redisClient: redisClient, opts: opts}
}

func (s *Service) PublicKey() *rsa.PublicKey {
	return &s.opts.PrivateKey.PublicKey
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) IssueAccessToken(user *users.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"exp":  now.Add(s.opts.AccessTokenTTL).Unix(),
		"iat":  now.Unix(),
		"name": user.DisplayName,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(s.opts.PrivateKey)
}

func (s *Service) IssueRefreshToken(ctx context.Context, userID uuid.UUID) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random token: %v", err)
	}
	tokenID := base64.URLEncoding.EncodeToString(tokenBytes)

	key := "refresh_token:" + tokenID
	if err := s.redisClient.Set(ctx, key, userID.String(), s.opts.RefreshTokenTTL).Err(); err != nil {
		return "", err
	}
	return tokenID, nil
}

func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	key := "refresh_token:" + token
	raw, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return uuid.Nil, apperrors.Unauthorized("invalid or expired refresh token")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.Unauthorized("invalid or expired refresh token")
	}
	return id, nil
}

func (s *Service) RevokeRefreshToken(ctx context.Context, token string) error {
	return s.redisClient.Del(ctx, "refresh_token:"+token).Err()
}

// --- Login lockout ---
// Keys:
// login_fail:<email> -> integer count (TTL = lock window)
// login_lockout:<email> -> "1" (TTL = lockout duration)

func (s *Service) IsLoginLocked(ctx context.Context, email string) (bool, int64, error) {
	ttl, err := s.redisClient.TTL(ctx, "login_lockout:"+email).Result()
	if err != nil && err != redis.Nil {
		return false, 0, err
	}
	if ttl > 0 {
		return true, int64(ttl.Seconds()), nil
	}
	return false, 0, nil
}

func (s *Service) RegisterLoginFailure(ctx context.Context, email string) (locked bool, ttlSeconds int64, err error) {
	failKey := "login_fail:" + email
	count, err := s.redisClient.Incr(ctx, failKey).Result()
	if err != nil {
		return false, 0, err
	}
	s.redisClient.Expire(ctx, failKey, s.opts.LoginLockout)
	if int(count) >= s.opts.LoginMaxFails {
		lockKey := "login_lockout:" + email
		_ = s.redisClient.Set(ctx, lockKey, "1", s.opts.LoginLockout).Err()
		return true, int64(s.opts.LoginLockout.Seconds()), nil
	}
	return false, 0, nil
}

func (s *Service) ClearLoginFailures(ctx context.Context, email string) {
	s.redisClient.Del(ctx, "login_fail:"+email)
}

func (s *Service) StoreEmailVerificationCode(ctx context.Context, userID uuid.UUID, code string) error {
	key := fmt.Sprintf("%s:%s", codeEmailVerify, userID)
	return s.redisClient.Set(ctx, key, code, s.opts.EmailVerifyTTL).Err()
}

func (s *Service) ValidateEmailVerificationCode(ctx context.Context, userID uuid.UUID, code string) error {
	key := fmt.Sprintf("%s:%s", codeEmailVerify, userID)
	storedCode, err := s.redisClient.Get(ctx, key).Result()
	if err != nil {
		return apperrors.BadRequest("invalid or expired verification code")
	}
	if storedCode != code {
		return apperrors.BadRequest("verification code does not match")
	}
	s.redisClient.Del(ctx, key)
	return nil
}

// GenerateVerificationCode returns a 6-digit numeric code using cryptographic
// randomness. Falls back to a time-based value only if the RNG fails.
func (s *Service) GenerateVerificationCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err == nil {
		n := binary.BigEndian.Uint32(buf) % 1000000
		return fmt.Sprintf("%06d", n)
	}
	return fmt.Sprintf("%06d", time.Now().UnixNano()%1000000)
}

func (s *Service) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return &s.opts.PrivateKey.PublicKey, nil
	})
}

func (s *Service) ExtractUserIDFromToken(tokenString string) (uuid.UUID, error) {
	token, err := s.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return uuid.Nil, apperrors.Unauthorized("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("invalid token claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, apperrors.Unauthorized("invalid user ID in token")
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apperrors.Unauthorized("invalid user ID in token")
	}
	return id, nil
}
