package httpapi

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/waveafterwave69/weather-app/internal/auth"
	"github.com/waveafterwave69/weather-app/internal/users"
	apperrors "github.com/waveafterwave69/weather-app/pkg/errors"
)

type signupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.writeError(w, apperrors.BadRequest("invalid email address"))
		return
	}
	if len(req.Password) < 8 {
		s.writeError(w, apperrors.BadRequest("password must be at least 8 characters"))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		req.DisplayName = strings.Split(req.Email, "@")[0]
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.users.Create(r.Context(), req.Email, hash, req.DisplayName)
	if errors.Is(err, users.ErrEmailTaken) {
		s.writeError(w, apperrors.Conflict("email is already registered"))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	code := s.auth.GenerateVerificationCode()
	if err := s.auth.StoreEmailVerificationCode(r.Context(), user.ID, code); err != nil {
		s.writeError(w, err)
		return
	}
	if s.email != nil {
		go func() {
			if err := s.email.SendVerificationEmail(user.Email, user.DisplayName, code); err != nil {
				s.logger.Error("failed to send verification email", "user_id", user.ID, "error", err)
			}
		}()
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user.Snapshot(),
		"message": "verification code sent",
	})
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.users.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, users.ErrNotFound) {
		s.writeError(w, apperrors.BadRequest("invalid or expired verification code"))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if err := s.auth.ValidateEmailVerificationCode(r.Context(), user.ID, req.Code); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.users.MarkVerified(r.Context(), user.ID); err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("email verified", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	User         users.Snapshot `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if locked, ttl, err := s.auth.IsLoginLocked(r.Context(), email); err == nil && locked {
		s.writeError(w, apperrors.TooManyRequests("too many failed login attempts").WithField("retry_after", ttl))
		return
	}

	user, err := s.users.GetByEmail(r.Context(), email)
	if errors.Is(err, users.ErrNotFound) {
		s.registerLoginFailure(r, email)
		s.writeError(w, apperrors.Unauthorized("invalid email or password"))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.registerLoginFailure(r, email)
		s.writeError(w, apperrors.Unauthorized("invalid email or password"))
		return
	}
	if !user.Verified {
		s.writeError(w, apperrors.Forbidden("email address is not verified"))
		return
	}

	s.auth.ClearLoginFailures(r.Context(), email)

	accessToken, err := s.auth.IssueAccessToken(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	refreshToken, err := s.auth.IssueRefreshToken(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Snapshot(),
	})
}

func (s *Server) registerLoginFailure(r *http.Request, email string) {
	locked, ttl, err := s.auth.RegisterLoginFailure(r.Context(), email)
	if err != nil {
		s.logger.Error("failed to record login failure", "error", err)
		return
	}
	if locked {
		s.logger.Warn("login locked out", "email", email, "ttl_seconds", ttl)
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	userID, err := s.auth.ValidateRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(w, err)
		return
	}
	user, err := s.users.GetByID(r.Context(), userID)
	if err != nil {
		s.writeError(w, apperrors.Unauthorized("invalid or expired refresh token"))
		return
	}

	// Rotate: the old token is revoked before a new pair is issued.
	if err := s.auth.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, err)
		return
	}
	accessToken, err := s.auth.IssueAccessToken(user)
	if err != nil {
		s.writeError(w, err)
		return
	}
	refreshToken, err := s.auth.IssueRefreshToken(r.Context(), user.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Snapshot(),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r)
	user, err := s.users.GetByID(r.Context(), userID)
	if errors.Is(err, users.ErrNotFound) {
		s.writeError(w, apperrors.Unauthorized("unknown user"))
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	prefs, err := s.users.GetPreferences(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        user.Snapshot(),
		"preferences": prefs,
	})
}
