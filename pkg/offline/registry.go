package offline

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/config"
)

// Registry owns the active interceptor and rolls over to new versions.
// Requests are routed through whichever interceptor is active at the time.
type Registry struct {
	storage   Storage
	origin    *url.URL
	resources []string
	network   http.RoundTripper

	// register serializes version rollovers
	register sync.Mutex

	mu     sync.RWMutex
	active *Interceptor
	latest *Interceptor
}

func NewRegistry(storage Storage, origin *url.URL, resources []string, network http.RoundTripper) *Registry {
	if network == nil {
		network = http.DefaultTransport
	}
	return &Registry{
		storage:   storage,
		origin:    origin,
		resources: resources,
		network:   network,
	}
}

// NewRegistryFromConfig builds a registry for the configured shell origin.
func NewRegistryFromConfig(cfg *config.Config, storage Storage) (*Registry, error) {
	origin, err := url.Parse(cfg.ShellOriginURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse shell origin url")
	}
	if origin.Scheme == "" || origin.Host == "" {
		return nil, errors.Errorf("shell origin url %q must be absolute", cfg.ShellOriginURL)
	}
	return NewRegistry(storage, origin, cfg.ShellResources, nil), nil
}

// Register installs version and, once that succeeds, activates it right away.
// The previous interceptor is superseded first so it stops caching, then
// stale caches are deleted and every later request goes through the new one.
// A failed install leaves the previous interceptor in charge. If activation
// itself fails the previous interceptor keeps serving from what is left of
// its cache without writing to it.
func (r *Registry) Register(ctx context.Context, version string) (*Interceptor, error) {
	r.register.Lock()
	defer r.register.Unlock()

	if active := r.Active(); active != nil && active.Version() == version {
		return active, nil
	}

	next := NewInterceptor(version, r.storage, r.origin, r.resources, r.network)
	r.mu.Lock()
	r.latest = next
	r.mu.Unlock()

	if err := next.Install(ctx); err != nil {
		return next, err
	}

	if previous := r.Active(); previous != nil {
		previous.supersede()
	}
	if err := next.Activate(ctx); err != nil {
		return next, err
	}

	r.mu.Lock()
	r.active = next
	r.mu.Unlock()

	logger.FromContext(ctx).Info("offline cache active", logger.Data{"version": version})
	return next, nil
}

// Active returns the interceptor currently serving requests, if any.
func (r *Registry) Active() *Interceptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active
}

// Fetch routes req through the active interceptor. Before anything is active
// requests go straight to the network.
func (r *Registry) Fetch(req *http.Request) *http.Response {
	if active := r.Active(); active != nil {
		return active.Fetch(req)
	}
	resp, err := forward(r.network, req, resolve(r.origin, req.URL.RequestURI()))
	if err != nil {
		return offlineResponse(req)
	}
	return resp
}

// RoundTrip leaves non-GET requests alone, like Interceptor.RoundTrip.
func (r *Registry) RoundTrip(req *http.Request) (*http.Response, error) {
	if active := r.Active(); active != nil {
		return active.RoundTrip(req)
	}
	if req.Method != http.MethodGet {
		return forward(r.network, req, resolve(r.origin, req.URL.RequestURI()))
	}
	return r.Fetch(req), nil
}

type Status struct {
	ActiveVersion string   `json:"active_version,omitempty"`
	ActiveState   string   `json:"active_state,omitempty" tstype:"State"`
	LatestVersion string   `json:"latest_version,omitempty"`
	LatestState   string   `json:"latest_state,omitempty" tstype:"State"`
	Caches        []string `json:"caches"`
}

func (r *Registry) Status(ctx context.Context) (*Status, error) {
	names, err := r.storage.Names(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if names == nil {
		names = []string{}
	}

	r.mu.RLock()
	active, latest := r.active, r.latest
	r.mu.RUnlock()

	status := &Status{Caches: names}
	if active != nil {
		status.ActiveVersion = active.Version()
		status.ActiveState = active.State()
	}
	if latest != nil {
		status.LatestVersion = latest.Version()
		status.LatestState = latest.State()
	}
	return status, nil
}
