// Package http exposes the ledger and insight engine as a JSON API.
// Handlers stay thin; every rule lives behind the coordinator.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finvoice/internal/cache"
	"finvoice/internal/core"
	"finvoice/internal/extract"
	"finvoice/internal/identity"
	"finvoice/internal/insight"
	"finvoice/internal/ledger"
	"finvoice/internal/log"
)

// Options tunes the server beyond its required collaborators.
type Options struct {
	// Verifier authenticates bearer tokens. When nil the server runs in
	// single-user mode and every request acts as DefaultUser.
	Verifier    identity.Verifier
	DefaultUser string

	// Extractor parses receipt and transcript text. Defaults to the
	// built-in heuristic parser.
	Extractor extract.Extractor

	ReportCacheSize int
	ReportCacheTTL  time.Duration

	Logger *log.Logger
}

// Server wires the coordinator and insight engine behind an http.Server.
type Server struct {
	http.Server

	coord     *ledger.Coordinator
	engine    *insight.Engine
	extractor extract.Extractor

	verifier    identity.Verifier
	defaultUser string

	reports *cache.LRU[insight.Report]

	incomeMu sync.RWMutex
	income   map[string][]core.IncomeSource

	limiter      *visitorLimiter
	logger       *log.Logger
	unsubscribe  func()
	shutdownOnce sync.Once
}

// NewServer registers all routes and subscribes the report cache to ledger
// change events so stale insights never outlive a mutation.
func NewServer(addr string, coord *ledger.Coordinator, engine *insight.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	if opts.Extractor == nil {
		opts.Extractor = extract.Heuristic{}
	}
	if opts.DefaultUser == "" {
		opts.DefaultUser = "local"
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 128
	}
	if opts.ReportCacheTTL <= 0 {
		opts.ReportCacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		coord:       coord,
		engine:      engine,
		extractor:   opts.Extractor,
		verifier:    opts.Verifier,
		defaultUser: opts.DefaultUser,
		reports:     cache.NewLRU[insight.Report](opts.ReportCacheSize, opts.ReportCacheTTL),
		income:      make(map[string][]core.IncomeSource),
		limiter:     newVisitorLimiter(),
		logger:      opts.Logger.WithComponent(log.ComponentHTTP),
	}

	// Change events carry no user scope, so any mutation drops the whole
	// report cache rather than one key.
	s.unsubscribe = coord.Subscribe(func(ledger.Event) { s.reports.Purge() })

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	api := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, s.withRequest(s.withUser(h)))
	}

	api("GET /api/expenses", s.handleListExpenses)
	api("POST /api/expenses", s.handleCreateExpense)
	api("PUT /api/expenses/{id}", s.handleUpdateExpense)
	api("DELETE /api/expenses/{id}", s.handleDeleteExpense)

	api("GET /api/budgets", s.handleListBudgets)
	api("POST /api/budgets", s.handleCreateBudget)
	api("PUT /api/budgets/{id}", s.handleUpdateBudget)
	api("DELETE /api/budgets/{id}", s.handleDeleteBudget)

	api("GET /api/goals", s.handleListGoals)
	api("POST /api/goals", s.handleCreateGoal)
	api("PUT /api/goals/{id}", s.handleUpdateGoal)
	api("DELETE /api/goals/{id}", s.handleDeleteGoal)
	api("POST /api/goals/{id}/contribute", s.handleContribute)

	api("GET /api/investments", s.handleListInvestments)
	api("POST /api/investments", s.handleCreateInvestment)
	api("PUT /api/investments/{id}", s.handleUpdateInvestment)
	api("DELETE /api/investments/{id}", s.handleDeleteInvestment)

	api("GET /api/cards", s.handleListCards)
	api("POST /api/cards", s.handleCreateCard)
	api("PUT /api/cards/{id}", s.handleUpdateCard)
	api("DELETE /api/cards/{id}", s.handleDeleteCard)

	api("GET /api/income", s.handleGetIncome)
	api("PUT /api/income", s.handlePutIncome)

	api("GET /api/summary", s.handleSummary)
	api("GET /api/insights", s.handleInsights)
	api("POST /api/insights/interactions", s.handleInteraction)

	api("POST /api/extract/transcript", s.handleExtractTranscript)
	api("POST /api/extract/receipt", s.handleExtractReceipt)

	return s
}

// Shutdown stops background goroutines before draining connections.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.limiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withRequest adds a request ID, security headers, access logging and rate
// limiting around a handler.
func (s *Server) withRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := newRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		if isMutation(r.Method) && !s.limiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				"request_id", requestID,
				"client_ip", clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.status,
			log.FieldDuration, time.Since(start).Milliseconds(),
			"client_ip", clientIP)
	}
}

// withUser resolves the acting user. With a verifier configured the bearer
// token decides; otherwise every request is the configured default user.
func (s *Server) withUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			next(w, r.WithContext(identity.WithUser(r.Context(), s.defaultUser)))
			return
		}

		token, ok := bearerToken(r)
		if !ok {
			writeTaxonomyError(w, core.ErrNotAuthenticated)
			return
		}
		userID, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.logger.WarnContext(r.Context(), "Token rejected", log.FieldError, err)
			writeTaxonomyError(w, core.ErrNotAuthenticated)
			return
		}
		next(w, r.WithContext(identity.WithUser(r.Context(), userID)))
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

type requestIDKey struct{}

// statusRecorder captures the handler's status code for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
