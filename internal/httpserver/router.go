package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"dchat/internal/config"
	"dchat/internal/domain"
	"dchat/internal/mail"
	"dchat/internal/security"
	"dchat/internal/service"
	"dchat/internal/ws"

	_ "dchat/docs"
	httpSwagger "github.com/swaggo/http-swagger"
)

// validate checks request payload structs against their `validate` tags.
var validate = validator.New()

// NewRouter constructs the main HTTP router and wires routes, services, and
// middleware. Repositories are injected so the same wiring serves both
// store backends.
func NewRouter(
	cfg *config.Config,
	userRepo domain.UserRepository,
	msgRepo domain.MessageRepository,
	hub *ws.Hub,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	otpStore := security.NewOTPStore(cfg.OTPTTL)
	mailer := mail.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailUser, cfg.EmailPass)
	authSvc := service.NewAuthService(userRepo, tokenSvc, passwordHasher, otpStore, mailer)
	userSvc := service.NewUserService(userRepo)
	presenceSvc := service.NewPresenceService(userRepo, hub)
	msgSvc := service.NewMessageService(userRepo, msgRepo, hub)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"dchat API","version":"1.0.0","docs":"/docs"}`))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
			r.Post("/send-otp", handleSendOTP(authSvc))
			r.Post("/verify-otp", handleVerifyOTP(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, userRepo))

			r.Post("/auth/logout", handleLogout(presenceSvc))
			r.Get("/auth/me", handleMe())

			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleListUsers(userSvc))
				r.Get("/status/{username}", handleUserStatus(userSvc))
				r.Get("/find/{username}", handleFindUser(userSvc))
				r.Put("/profile", handleUpdateProfile(userSvc))
			})

			r.Route("/messages", func(r chi.Router) {
				r.Post("/", handleSendMessage(msgSvc))
				r.Get("/chats/{username}", handleChats(msgSvc))
				r.Get("/contacts/{username}", handleRecentContacts(msgSvc))
				r.Get("/unread-counts/{username}", handleUnreadCounts(msgSvc))
				r.Get("/last-read/{senderID}/{receiverID}", handleLastRead(msgSvc))
				r.Put("/mark-read/{counterpartyID}/{viewerID}", handleMarkRead(msgSvc))
				r.Get("/{user1}/{user2}", handleHistory(msgSvc))
			})

			r.Mount("/uploads", UploadRoutes(cfg, userSvc))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(hub, tokenSvc, userRepo, presenceSvc, msgSvc, cfg.CORSOrigins))

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain sentinels to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRecipient), errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
