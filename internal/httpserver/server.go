// internal/httpserver/server.go
//
// HTTP server wiring for the Flickle backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/modes", leaderboards.
//   - Play endpoints (optional auth): mounted under /play.
//   - Auth + profile/stat endpoints: /auth/*, /stats/me.
//   - Background sweep of idle rounds.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - Guests play under an anonymous cookie; their stats live in memory.
//   - The clock websocket and the share PNG sit outside the JSON/timeout group.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/flickle/internal/content"
	"github.com/robalobadob/flickle/internal/daily"
	"github.com/robalobadob/flickle/internal/stats"
	"github.com/robalobadob/flickle/internal/store"
)

// Config holds the HTTP-facing settings.
type Config struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	CookieName     string
	AnonCookieName string
	ClientOrigin   string
	Secure         bool // Secure + SameSite=None cookies
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.JWTSecret == "" {
		c.JWTSecret = "dev_secret_change_me"
	}
	if c.JWTExpiry <= 0 {
		c.JWTExpiry = 14 * 24 * time.Hour
	}
	if c.CookieName == "" {
		c.CookieName = "flickle_token"
	}
	if c.AnonCookieName == "" {
		c.AnonCookieName = "flickle_anon"
	}
	if c.ClientOrigin == "" {
		c.ClientOrigin = "http://localhost:5173"
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 10 * time.Second
	}
	return c
}

// Deps are the collaborators the server drives.
type Deps struct {
	DB       *sql.DB          // users + daily results
	Rounds   store.Store      // live rounds
	Catalog  *content.Catalog // modes and puzzles
	Accounts stats.Repository // stats for signed-in players
	Guests   stats.Repository // stats for anonymous players
}

// Server bundles router, live round store and persistence.
type Server struct {
	r        *chi.Mux
	cfg      Config
	db       *sql.DB
	rounds   store.Store
	catalog  *content.Catalog
	daily    *daily.Store
	accounts stats.Repository
	guests   stats.Repository
	now      func() time.Time
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      cfg.withDefaults(),
		db:       deps.DB,
		rounds:   deps.Rounds,
		catalog:  deps.Catalog,
		daily:    daily.NewStore(deps.DB),
		accounts: deps.Accounts,
		guests:   deps.Guests,
		now:      time.Now,
	}
	if s.guests == nil {
		s.guests = stats.NewMemory()
	}
	if s.accounts == nil {
		s.accounts = stats.NewSQLite(deps.DB)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.RequestTimeout)) // bound handler time
		r.Use(jsonContentType)                     // default JSON responses

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"service":"flickle","endpoints":["/health","/modes","POST /play/{mode}/new","POST /play/guess","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"ok":true}`))
		})
		r.Get("/modes", s.handleModes)

		// Play endpoints: optional auth, guests can play
		r.Group(func(r chi.Router) {
			r.Use(s.withOptionalAuth())
			s.mountPlay(r)
		})

		// Leaderboards: public
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/daily/leaderboard", s.handleDailyLeaderboard)

		// Auth + profile/stats
		s.mountAuthRoutes(r)

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	// Streaming and binary routes: no JSON content type, no handler timeout.
	s.r.With(s.withOptionalAuth()).Get("/play/{roundId}/clock", s.handleClock)
	s.r.Get("/play/{roundId}/share.png", s.handleSharePNG)

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then shuts down.
func (s *Server) Start(ctx context.Context, addr string) error {
	hs := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := hs.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// SweepLoop drops rounds idle for longer than ttl, checking every interval,
// until ctx is cancelled.
func (s *Server) SweepLoop(ctx context.Context, ttl, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.rounds.Sweep(ctx, s.now().Add(-ttl)); n > 0 {
				log.Info().Int("rounds", n).Msg("swept idle rounds")
			}
		}
	}
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ catalogue ----------------------------------

type modeView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Blurb       string `json:"blurb"`
	Answer      string `json:"answer"`
	Budget      int    `json:"budget"`
	Policy      string `json:"policy"`
	TimeLimitMs int64  `json:"timeLimitMs,omitempty"`
}

type modesRes struct {
	Date   string     `json:"date"`
	Number int        `json:"number"`
	Modes  []modeView `json:"modes"`
}

// handleModes lists the catalogue with today's puzzle number.
func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	out := modesRes{Date: daily.DateKey(now), Number: s.catalog.Number(now)}
	for _, m := range s.catalog.Modes {
		out.Modes = append(out.Modes, modeView{
			ID:          m.ID,
			Title:       m.Title,
			Blurb:       m.Blurb,
			Answer:      m.Answer,
			Budget:      m.Budget,
			Policy:      m.RevealPolicy().Kind.String(),
			TimeLimitMs: m.TimeLimit().Milliseconds(),
		})
	}
	_ = json.NewEncoder(w).Encode(out)
}

// ------------------------------- helpers -----------------------------------

// httpError writes a JSON error body with a machine-readable code.
func httpError(w http.ResponseWriter, status int, code string) {
	http.Error(w, `{"error":"`+code+`"}`, status)
}

// queryLimit parses ?limit=, falling back to def and capping at 100.
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 100)
}
