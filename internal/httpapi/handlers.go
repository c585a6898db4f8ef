package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/qazna-labs/recordvault/internal/auth"
	"github.com/qazna-labs/recordvault/internal/config"
	"github.com/qazna-labs/recordvault/internal/csvstream"
	"github.com/qazna-labs/recordvault/internal/entitlement"
	"github.com/qazna-labs/recordvault/internal/ingest"
	"github.com/qazna-labs/recordvault/internal/obs"
	"github.com/qazna-labs/recordvault/internal/queryengine"
	"github.com/qazna-labs/recordvault/internal/store"
)

// ReadyProbe checks whether the process's dependencies are reachable.
type ReadyProbe struct {
	Store store.Store
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Store == nil {
		return nil
	}
	// A cheap format read exercises the pool without assuming any schema.
	_, err := rp.Store.Formats().ListReadable(ctx, uuid.Nil, true)
	return err
}

// API is the HTTP layer: it wires the core packages to REST endpoints.
type API struct {
	mux *http.ServeMux

	store      store.Store
	authSvc    *auth.Service
	resolver   *entitlement.Resolver
	ingest     *ingest.Pipeline
	query      *queryengine.Engine
	csv        *csvstream.Pipeline
	csvLimiter *csvstream.Limiter

	cfg        *config.Config
	readyProbe ReadyProbe
	version    string
}

// Deps bundles the composition-root-built core services New wires into routes.
type Deps struct {
	Store      store.Store
	AuthSvc    *auth.Service
	Resolver   *entitlement.Resolver
	Ingest     *ingest.Pipeline
	Query      *queryengine.Engine
	CSV        *csvstream.Pipeline
	CSVLimiter *csvstream.Limiter
	Config     *config.Config
}

func New(deps Deps, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		store:      deps.Store,
		authSvc:    deps.AuthSvc,
		resolver:   deps.Resolver,
		ingest:     deps.Ingest,
		query:      deps.Query,
		csv:        deps.CSV,
		csvLimiter: deps.CSVLimiter,
		cfg:        deps.Config,
		readyProbe: ReadyProbe{Store: deps.Store},
		version:    version,
	}

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReady)
	a.mux.HandleFunc("GET /v1/info", a.handleInfo)
	a.mux.Handle("GET /metrics", obs.Handler())

	a.mux.HandleFunc("POST /login", a.handleLogin)
	a.mux.HandleFunc("POST /user/token/validate", a.handleValidateToken)

	a.mux.HandleFunc("POST /user", a.handleCreateUser)
	a.mux.HandleFunc("GET /user", a.handleListUsers)
	a.mux.HandleFunc("GET /user/{id}", a.handleGetUser)
	a.mux.HandleFunc("PATCH /user/{id}", a.handleUpdateUser)
	a.mux.HandleFunc("DELETE /user/{id}", a.handleDeleteUser)
	a.mux.HandleFunc("POST /user/{id}/api-key", a.handleIssueAPIKey)
	a.mux.HandleFunc("PATCH /user/{id}/api-key", a.handleRotateAPIKey)
	a.mux.HandleFunc("DELETE /user/{id}/api-key", a.handleDeleteAPIKey)
	a.mux.HandleFunc("GET /user/api-key", a.handleListAPIKeys)

	a.mux.HandleFunc("POST /format", a.handleCreateFormat)
	a.mux.HandleFunc("GET /format", a.handleListFormats)
	a.mux.HandleFunc("GET /format/{id}", a.handleGetFormat)
	a.mux.HandleFunc("DELETE /format/{id}", a.handleDeleteFormat)

	a.mux.HandleFunc("POST /record", a.handleIngestRecords)
	a.mux.HandleFunc("POST /record/filter", a.handleFilterRecords)
	a.mux.HandleFunc("POST /record/filter-stream", a.handleFilterStreamRecords)

	a.mux.HandleFunc("GET /entitlement", a.handleGetEntitlement)
	a.mux.HandleFunc("POST /entitlement", a.handleGrantEntitlement)
	a.mux.HandleFunc("DELETE /entitlement", a.handleRevokeEntitlement)

	a.mux.HandleFunc("GET /upload_session", a.handleListUploadSessions)
	a.mux.HandleFunc("DELETE /upload_session/{id}", a.handleDeleteUploadSession)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler wraps the routed mux with the ambient middleware stack, applied
// outside-in: request id, logging, metrics instrumentation, security
// headers, CORS, rate limiting, bearer auth, then the body-size guard.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = MaxBodyBytes(h, a.cfg.MaxJSONPayloadSize)
	h = a.withAuth(h)
	h = RateLimit(h, a.cfg.RateLimitBurst, a.cfg.RateLimitPerSecond)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "recordvault",
		"version": a.version,
	})
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "recordvault",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
