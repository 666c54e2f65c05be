package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/waveafterwave69/weather-app/internal/auth"
	"github.com/waveafterwave69/weather-app/internal/dashboard"
	"github.com/waveafterwave69/weather-app/internal/geoloc"
	apperrors "github.com/waveafterwave69/weather-app/pkg/errors"
)

type createSessionRequest struct {
	// AllowGeolocation mirrors the client's permission grant; detection
	// fails with a denial when it is false.
	AllowGeolocation bool `json:"allow_geolocation"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}

	userID := auth.UserID(r)
	defaultCity := s.opts.DefaultCity
	if prefs, err := s.users.GetPreferences(r.Context(), userID); err == nil && prefs.DefaultCity != "" {
		defaultCity = prefs.DefaultCity
	}

	var sessionID string
	store := dashboard.NewStore(s.weather, s.resolver, dashboard.Options{
		DefaultCity: defaultCity,
		Debounce:    s.opts.SearchDebounce,
		Logger:      s.logger,
		OnChange: func(st dashboard.State) {
			s.hub.BroadcastState(sessionID, renderView(st, time.Now()))
		},
	})
	sess := s.registry.Add(userID.String(), store)
	sessionID = sess.ID

	locReq := geoloc.Request{IP: clientIP(r), Allowed: req.AllowGeolocation}
	go func() {
		if err := store.DetectLocation(store.Context(), locReq); err != nil {
			s.logger.Warn("initial location detection failed", "session_id", sess.ID, "error", err)
		}
	}()

	s.logger.Info("dashboard session created", "session_id", sess.ID, "user_id", userID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": sess.ID,
		"state":      renderView(store.Snapshot(), time.Now()),
	})
}

// session resolves the URL's session ID to a store owned by the caller.
// Foreign sessions are reported as missing rather than forbidden.
func (s *Server) session(r *http.Request) (*dashboard.Session, *apperrors.AppError) {
	sess, ok := s.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok || sess.UserID != auth.UserID(r).String() {
		return nil, apperrors.NotFound("session not found")
	}
	return sess, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"state":      renderView(sess.Store.Snapshot(), time.Now()),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	s.registry.Remove(sess.ID)
	s.hub.CloseSession(sess.ID)
	s.logger.Info("dashboard session closed", "session_id", sess.ID)
	w.WriteHeader(http.StatusNoContent)
}

type searchRequest struct {
	Value string `json:"value"`
}

// handleSearch records the typed input; the fetch itself runs after the
// debounce window, so the response reflects the pre-fetch state.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	var req searchRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	sess.Store.SetSearchValue(req.Value)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"state": renderView(sess.Store.Snapshot(), time.Now()),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	// Fetch failures are not HTTP failures; the classified message is
	// part of the returned state.
	if err := sess.Store.Submit(r.Context()); err != nil {
		s.logger.Warn("search submit failed", "session_id", sess.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": renderView(sess.Store.Snapshot(), time.Now()),
	})
}

func (s *Server) handleRetryLocation(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, err)
			return
		}
	}
	locReq := geoloc.Request{IP: clientIP(r), Allowed: req.AllowGeolocation}
	if err := sess.Store.RetryLocation(r.Context(), locReq); err != nil {
		s.logger.Warn("location retry failed", "session_id", sess.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state": renderView(sess.Store.Snapshot(), time.Now()),
	})
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sess, appErr := s.session(r)
	if appErr != nil {
		s.writeError(w, appErr)
		return
	}
	s.hub.Serve(w, r, sess.ID)
}

type themeRequest struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	theme, err := s.settings.GetTheme(r.Context(), auth.UserID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, themeRequest{Theme: theme})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req themeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.settings.SetTheme(r.Context(), auth.UserID(r), req.Theme); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
