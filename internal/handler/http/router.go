package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	AuthToken string
	// Idempotency wraps POST /v1/payouts. Nil leaves the route unwrapped.
	Idempotency func(http.Handler) http.Handler
	Logger      *slog.Logger
}

func NewRouter(payouts *PayoutHandler, balances *BalanceHandler, webhook *WebhookHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The bank authenticates callbacks with HMAC, not the API token.
	r.Post("/webhook/card2card", webhook.Receive)

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware(cfg.AuthToken))

		create := http.Handler(http.HandlerFunc(payouts.Create))
		if cfg.Idempotency != nil {
			create = cfg.Idempotency(create)
		}
		r.Method(http.MethodPost, "/payouts", create)
		r.Get("/payouts/{externalID}", payouts.Get)
		r.Get("/payouts/{externalID}/callbacks", payouts.Callbacks)

		r.Get("/balances/{userID}", balances.Get)
		r.Post("/balances/{userID}/topup", balances.TopUp)
	})

	return r
}

func authMiddleware(authToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r.Header.Get("Authorization"))
			if token == "" || !secureCompare(token, authToken) {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"event", "http_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
