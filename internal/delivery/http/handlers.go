package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/chirp/internal/auth"
	"github.com/mmuslimabdulj/chirp/internal/config"
	"github.com/mmuslimabdulj/chirp/internal/delivery/ws"
	"github.com/mmuslimabdulj/chirp/internal/domain"
	"github.com/mmuslimabdulj/chirp/internal/middleware"
	"github.com/mmuslimabdulj/chirp/internal/store"
)

type Handler struct {
	cfg      *config.Config
	store    store.Store
	tokens   *auth.TokenService
	hub      *ws.Hub
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewHandler(cfg *config.Config, st store.Store, tokens *auth.TokenService, hub *ws.Hub, log *slog.Logger) *Handler {
	h := &Handler{
		cfg:    cfg,
		store:  st,
		tokens: tokens,
		hub:    hub,
		log:    log,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return h.isOriginAllowed(r.Header.Get("Origin"))
		},
	}
	return h
}

// isOriginAllowed checks if the origin is in the allowed list
func (h *Handler) isOriginAllowed(origin string) bool {
	// Empty origin is allowed (same-origin requests)
	if origin == "" {
		return true
	}

	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == "*" || origin == allowed {
			return true
		}
	}
	return false
}

// Router assembles the full route tree with middleware applied.
func (h *Handler) Router(apiLimiter, wsLimiter *middleware.IPRateLimiter) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(middleware.SecurityHeaders)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(apiLimiter))

		r.Post("/auth/register", h.HandleRegister)
		r.Post("/auth/login", h.HandleLogin)
		r.Get("/health", h.HandleHealth)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.tokens))
			r.Get("/tweets", h.HandleListTweets)
			r.Post("/tweets", h.HandleCreateTweet)
		})
	})

	r.With(middleware.RateLimit(wsLimiter)).Get("/ws", h.HandleWebSocket)

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// HandleRegister creates a user account and returns a token for it.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	if err := validateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	user := domain.NewUser(req.Username, req.Email, hash)
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "Username or email already taken")
			return
		}
		h.log.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	h.log.Info("user registered", "username", user.Username)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token": token,
		"user":  user.Identity(),
	})
}

// HandleLogin verifies credentials and returns a fresh token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	user, err := h.store.UserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		h.log.Error("lookup user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Generate(user)
	if err != nil {
		h.log.Error("generate token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"user":  user.Identity(),
	})
}

// HandleListTweets returns the retained feed, newest first.
func (h *Handler) HandleListTweets(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.RecentPosts(r.Context())
	if err != nil {
		h.log.Error("list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// HandleCreateTweet stores a post and fans it out to connected clients.
func (h *Handler) HandleCreateTweet(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	content, err := validateContent(req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	post := domain.NewPost(identity.UserID, identity.Username, content)
	if err := h.store.CreatePost(r.Context(), post); err != nil {
		h.log.Error("create post", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	// Broadcast after the write succeeds so clients never see a post
	// that a feed refetch would miss.
	h.hub.BroadcastPost(post)

	writeJSON(w, http.StatusCreated, post)
}

// HandleHealth reports liveness and the current connection count.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"connections": h.hub.ConnectedCount(),
	})
}

// HandleWebSocket upgrades the request and hands the socket to the hub.
// Authentication happens in-band after the upgrade.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("upgrade failed", "error", err)
		return
	}
	h.hub.ServeConn(conn)
}
