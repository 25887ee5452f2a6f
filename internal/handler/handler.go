// Package handler exposes the session operations as a JSON API. It only
// dispatches user intents and renders state; all business rules live in
// the session package.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/catalog"
	appI18n "github.com/ErumAfzal/Roleplay-App-sub000/internal/i18n"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/session"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/store"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/survey"
)

const sessionCookieName = "session"

type sessionCtxKey struct{}

// Config holds the handler's runtime parameters set via CLI flags.
type Config struct {
	SecureCookies bool   // Set Secure flag on cookies (disable for local dev)
	StoreName     string // Selected persistence backend (sqlite, postgres)
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	catalog   *catalog.Catalog
	questions *survey.Set
	sessions  *session.Manager
	reader    store.Reader // nil when running fallback-only
	config    Config
	adminHash []byte // bcrypt; empty disables the admin surface
}

// New creates a new Handler. adminPassword may be empty, which disables
// the admin routes.
func New(c *catalog.Catalog, q *survey.Set, m *session.Manager, reader store.Reader, cfg Config, adminPassword string) (*Handler, error) {
	h := &Handler{
		catalog:   c,
		questions: q,
		sessions:  m,
		reader:    reader,
		config:    cfg,
	}
	if adminPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		h.adminHash = hash
	}
	return h, nil
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Get("/state", h.handleState)
		r.Post("/student", h.handleSetStudent)
		r.Get("/scenarios", h.handleListScenarios)
		r.Post("/select", h.handleSelect)
		r.Post("/conversation/start", h.handleStart)
		r.Post("/conversation/message", h.handleMessage)
		r.Post("/conversation/end", h.handleEnd)
		r.Get("/transcript", h.handleTranscript)
		r.Get("/survey", h.handleSurveyQuestions)
		r.Post("/survey", h.handleSubmitSurvey)
	})

	if len(h.adminHash) > 0 {
		r.With(h.requireAdmin).Get("/admin/attempts", h.handleAdminAttempts)
	}
}

// sessionMiddleware attaches the caller's session, issuing a cookie for
// new sessions, and localizes the request to the session language.
func (h *Handler) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var token string
		if cookie, err := r.Cookie(sessionCookieName); err == nil {
			token = cookie.Value
		}

		newToken, s, err := h.sessions.GetOrCreate(token)
		if err != nil {
			slog.Error("create session", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if newToken != token {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookieName,
				Value:    newToken,
				Path:     "/",
				HttpOnly: true,
				Secure:   h.config.SecureCookies,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), sessionCtxKey{}, s)
		loc := appI18n.NewLocalizer(string(s.State().Language))
		ctx = appI18n.WithLocalizer(ctx, loc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromCtx(ctx context.Context) *session.Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return s
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"app":    appI18n.T(r.Context(), "AppTitle"),
	})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	writeJSON(w, http.StatusOK, s.State())
}

func (h *Handler) handleSetStudent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	s := sessionFromCtx(r.Context())
	s.SetStudentID(req.StudentID)
	writeJSON(w, http.StatusOK, s.State())
}

type scenarioDTO struct {
	ID          int    `json:"id"`
	Batch       int    `json:"batch"`
	Orientation string `json:"orientation"`
	Title       string `json:"title"`
	Briefing    string `json:"briefing"`
}

// handleListScenarios returns the scenarios offered at the session's
// current stage, localized. The hidden persona script is never exposed.
func (h *Handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	st := s.State()

	if st.Stage == model.StageFinished {
		writeJSON(w, http.StatusOK, map[string]any{
			"batch_stage": st.Stage,
			"summary":     appI18n.Tp(r.Context(), "ScenariosAvailable", 0),
			"scenarios":   []scenarioDTO{},
		})
		return
	}

	scenarios := lo.Map(h.catalog.ListByBatch(st.Stage.Batch()), func(sc model.Scenario, _ int) scenarioDTO {
		return scenarioDTO{
			ID:          sc.ID,
			Batch:       sc.Batch,
			Orientation: string(sc.Orientation),
			Title:       sc.Title.In(st.Language),
			Briefing:    sc.Briefing.In(st.Language),
		}
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_stage": st.Stage,
		"summary":     appI18n.Tp(r.Context(), "ScenariosAvailable", len(scenarios)),
		"scenarios":   scenarios,
	})
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScenarioID int    `json:"scenario_id"`
		Language   string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	lang, err := model.ParseLanguage(req.Language)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidLanguage")
		return
	}

	s := sessionFromCtx(r.Context())
	if err := s.Select(req.ScenarioID, lang); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	if err := s.StartAttempt(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, r, http.StatusBadRequest, "EmptyMessage")
		return
	}

	s := sessionFromCtx(r.Context())
	pair, err := s.PostUserMessage(r.Context(), text)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": pair})
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	if err := s.EndAttempt(); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.State())
}

func (h *Handler) handleTranscript(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.Transcript()))
}

type questionDTO struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

func (h *Handler) handleSurveyQuestions(w http.ResponseWriter, r *http.Request) {
	s := sessionFromCtx(r.Context())
	lang := s.State().Language

	questions := lo.Map(h.questions.Questions, func(q model.SurveyQuestion, _ int) questionDTO {
		return questionDTO{Key: q.Key, Text: q.Text.In(lang)}
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      h.questions.Name,
		"scale_min": model.RatingMin,
		"scale_max": model.RatingMax,
		"questions": questions,
	})
}

func (h *Handler) handleSubmitSurvey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Ratings map[string]int `json:"ratings"`
		Comment string         `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "InvalidRequest")
		return
	}

	s := sessionFromCtx(r.Context())
	entry, err := s.SubmitSurvey(r.Context(), model.Answers{Ratings: req.Ratings, Comment: req.Comment})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	slog.Info("attempt recorded",
		"student", entry.StudentID, "scenario", entry.ScenarioID, "stage", entry.Stage)
	writeJSON(w, http.StatusOK, s.State())
}

// writeSessionError maps session and store failures to HTTP status codes
// with localized messages.
func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	var pe *store.PersistenceError
	switch {
	case errors.Is(err, session.ErrInvalidSelection):
		writeError(w, r, http.StatusBadRequest, "ScenarioNotAvailable")
	case errors.Is(err, session.ErrSessionFinished):
		writeError(w, r, http.StatusConflict, "SessionFinished")
	case errors.Is(err, session.ErrNoSelection):
		writeError(w, r, http.StatusConflict, "NoScenarioSelected")
	case errors.Is(err, session.ErrConversationActive):
		writeError(w, r, http.StatusConflict, "ConversationStillActive")
	case errors.Is(err, session.ErrConversationInactive):
		writeError(w, r, http.StatusConflict, "NoActiveConversation")
	case errors.Is(err, session.ErrNoMessages):
		writeError(w, r, http.StatusConflict, "NothingToSubmit")
	case errors.Is(err, session.ErrAlreadySubmitted):
		writeError(w, r, http.StatusConflict, "FeedbackAlreadySubmitted")
	case errors.Is(err, session.ErrCompletionDisabled):
		writeError(w, r, http.StatusServiceUnavailable, "PartnerNotConfigured")
	case errors.As(err, &pe):
		slog.Error("all stores failed", "error", err)
		writeError(w, r, http.StatusBadGateway, "StorageUnavailable")
	default:
		// Remaining cases are survey answer validation failures.
		slog.Warn("rejected request", "error", err)
		writeError(w, r, http.StatusBadRequest, "InvalidAnswers")
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}
