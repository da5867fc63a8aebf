package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"clinicore.org/internal/auth"
	"clinicore.org/internal/obs"
	"clinicore.org/internal/records"
	"clinicore.org/internal/stream"
	"clinicore.org/internal/tenancy"
)

const (
	defaultRateBurst  = 20
	defaultRatePerSec = 10
	maxBodyBytes      = 1 << 20
)

// Options wires the API's collaborators.
type Options struct {
	Version    string
	ReadyProbe ReadyProbe
	Tokens     *auth.Service
	Identity   auth.IdentityStore
	Resolver   auth.TenantResolver
	Links      tenancy.LinkStore
	Registry   *tenancy.Registry
	Records    records.Store
	Cabinets   records.CabinetStore
	Events     *stream.Stream
}

// API is the HTTP layer.
type API struct {
	mux        *chi.Mux
	handler    http.Handler
	tokens     *auth.Service
	identity   auth.IdentityStore
	resolver   auth.TenantResolver
	registry   *tenancy.Registry
	policy     *tenancy.Policy
	records    records.Store
	cabinets   records.CabinetStore
	events     *stream.Stream
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// New assembles the router. The policy is constructed here, downstream of
// withAuth in every route chain, so the middleware-before-policy ordering
// is structural rather than conventional.
func New(opts Options) *API {
	a := &API{
		mux:        chi.NewRouter(),
		tokens:     opts.Tokens,
		identity:   opts.Identity,
		resolver:   opts.Resolver,
		registry:   opts.Registry,
		policy:     tenancy.NewPolicy(opts.Links, opts.Registry),
		records:    opts.Records,
		cabinets:   opts.Cabinets,
		events:     opts.Events,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		rateBurst:  defaultRateBurst,
		ratePerSec: defaultRatePerSec,
	}
	a.routes()
	a.handler = obs.Instrument(RateLimit(a.mux, a.rateBurst, a.ratePerSec))
	return a
}

func (a *API) routes() {
	r := a.mux

	r.Use(RequestID)
	r.Use(LoggingJSON)
	r.Use(SecurityHeaders)
	r.Use(MaxBodyBytes(maxBodyBytes))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReady)
	r.Handle("/metrics", obs.Handler())

	// Administrative surface; the API middleware never applies here.
	r.Get("/admin/events", a.handleAccessEvents)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/info", a.handleInfo)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", a.handleAuthLogin)
			r.Post("/refresh", a.handleAuthRefresh)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)

			r.With(a.authorize(tenancy.CabinetResource, tenancy.ActionList)).
				Get("/cabinets", a.handleListCabinets)
			r.With(a.authorize(tenancy.CabinetResource, tenancy.ActionRead)).
				Get("/cabinets/{docID}", a.handleGetCabinet)

			for _, entry := range a.registry.Entries() {
				a.mountRecords(r, entry)
			}
		})
	})
}

// Handler returns the instrumented root handler, wrapped with the per-IP
// rate limiter.
func (a *API) Handler() http.Handler {
	return a.handler
}
