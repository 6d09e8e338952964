package offline

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/folio/pkg/errcodes"
	"github.com/shishobooks/folio/pkg/version"
	"golang.org/x/sync/errgroup"
)

const installConcurrency = 4

// Interceptor serves app-shell requests cache first. Each interceptor owns
// the cache named after its version.
type Interceptor struct {
	version   string
	storage   Storage
	origin    *url.URL
	resources []string
	network   http.RoundTripper

	mu    sync.RWMutex
	state string
}

func NewInterceptor(version string, storage Storage, origin *url.URL, resources []string, network http.RoundTripper) *Interceptor {
	if network == nil {
		network = http.DefaultTransport
	}
	return &Interceptor{
		version:   version,
		storage:   storage,
		origin:    origin,
		resources: resources,
		network:   network,
		state:     StateInstalling,
	}
}

// Version is also the name of the interceptor's cache.
func (i *Interceptor) Version() string {
	return i.version
}

func (i *Interceptor) State() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

func (i *Interceptor) transition(to string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !canTransition(i.state, to) {
		return errors.Errorf("offline cache %s can't move from %s to %s", i.version, i.state, to)
	}
	i.state = to
	return nil
}

// Install fetches every shell resource and stores them in one write. If any
// fetch fails nothing is stored and the interceptor becomes redundant.
func (i *Interceptor) Install(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if i.State() != StateInstalling {
		return errors.Errorf("offline cache %s is %s, not installing", i.version, i.State())
	}

	entries := make(map[string]*CachedResponse, len(i.resources))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(installConcurrency)
	for _, resource := range i.resources {
		g.Go(func() error {
			target := i.resolve(resource)
			req, err := http.NewRequestWithContext(gctx, http.MethodGet, target.String(), nil)
			if err != nil {
				return errors.WithStack(err)
			}
			req.Header.Set("User-Agent", version.UserAgent())
			resp, err := i.network.RoundTrip(req)
			if err != nil {
				return errors.Wrapf(err, "fetch %s", resource)
			}
			defer resp.Body.Close()
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return errors.Errorf("fetch %s: unexpected status %d", resource, resp.StatusCode)
			}
			cached, err := snapshot(resp)
			if err != nil {
				return errors.Wrapf(err, "read %s", resource)
			}

			mu.Lock()
			entries[RequestKey(http.MethodGet, target.String())] = cached
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = i.storage.PutAll(ctx, i.version, entries)
	}
	if err != nil {
		_ = i.transition(StateRedundant)
		log.Err(err).Warn("offline cache install failed", logger.Data{"version": i.version})
		return err
	}

	log.Info("offline cache installed", logger.Data{"version": i.version, "resources": len(entries)})
	return i.transition(StateWaiting)
}

// Activate deletes every cache but this one and starts caching fetches.
func (i *Interceptor) Activate(ctx context.Context) error {
	log := logger.FromContext(ctx)

	if i.State() != StateWaiting {
		return errors.Errorf("offline cache %s is %s, not waiting", i.version, i.State())
	}

	names, err := i.storage.Names(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, name := range names {
		if name == i.version {
			continue
		}
		if _, err := i.storage.Delete(ctx, name); err != nil {
			return errors.Wrapf(err, "delete cache %s", name)
		}
		log.Info("deleted stale offline cache", logger.Data{"name": name})
	}

	return i.transition(StateActive)
}

func (i *Interceptor) supersede() {
	_ = i.transition(StateSuperseded)
}

// Fetch answers req from the cache, then the network. Only GET requests touch
// the cache. It never fails: a request nothing can answer gets a 503. Callers
// that can take an error should use RoundTrip, which leaves other methods
// alone entirely.
func (i *Interceptor) Fetch(req *http.Request) *http.Response {
	ctx := req.Context()
	log := logger.FromContext(ctx)

	target := i.resolve(req.URL.RequestURI())

	if req.Method != http.MethodGet {
		resp, err := i.forward(req, target)
		if err != nil {
			log.Debug("network unavailable", logger.Data{"method": req.Method, "url": target.String(), "error": err.Error()})
			return offlineResponse(req)
		}
		return resp
	}

	key := RequestKey(req.Method, target.String())
	cached, err := i.storage.Match(ctx, i.version, key)
	if err == nil {
		return cached.response(req)
	}
	if !errcodes.HasCode(err, errcodes.CodeNotFound) {
		log.Err(err).Warn("offline cache lookup failed", logger.Data{"key": key})
	}

	resp, err := i.forward(req, target)
	if err != nil {
		log.Debug("network unavailable", logger.Data{"url": target.String(), "error": err.Error()})
		return offlineResponse(req)
	}

	// partial responses can't stand in for the whole resource
	if resp.StatusCode == http.StatusPartialContent || i.State() != StateActive {
		return resp
	}

	copied, err := snapshot(resp)
	resp.Body.Close()
	if err != nil {
		log.Debug("network response cut short", logger.Data{"url": target.String(), "error": err.Error()})
		return offlineResponse(req)
	}
	resp.Body = io.NopCloser(bytes.NewReader(copied.Body))

	if err := i.storage.Put(ctx, i.version, key, copied); err != nil {
		if errcodes.HasCode(err, errcodes.CodeNotFound) {
			log.Debug("offline cache deleted, response not cached", logger.Data{"key": key, "version": i.version})
		} else {
			log.Err(err).Warn("failed to cache response", logger.Data{"key": key})
		}
	}

	return resp
}

// RoundTrip lets the interceptor sit under an http.Client or reverse proxy.
// Only GET is intercepted. Anything else goes to the network as is, and a
// network failure comes back as an error.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return i.forward(req, i.resolve(req.URL.RequestURI()))
	}
	return i.Fetch(req), nil
}

func (i *Interceptor) forward(req *http.Request, target *url.URL) (*http.Response, error) {
	return forward(i.network, req, target)
}

func (i *Interceptor) resolve(ref string) *url.URL {
	return resolve(i.origin, ref)
}

func forward(network http.RoundTripper, req *http.Request, target *url.URL) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.URL = target
	out.Host = target.Host
	out.RequestURI = ""
	return network.RoundTrip(out)
}

// resolve maps a path (with optional query) onto the shell origin.
func resolve(origin *url.URL, ref string) *url.URL {
	u, err := url.Parse(ref)
	if err != nil {
		u = &url.URL{Path: ref}
	}
	return origin.ResolveReference(u)
}

func snapshot(resp *http.Response) (*CachedResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &CachedResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}, nil
}
