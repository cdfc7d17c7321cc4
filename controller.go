// Package catalogx implements the query-state and result-cache core of a
// product catalog browser: it owns the paging, sorting, filtering and
// free-text search state for a listing, resolves queries against a
// bounded TTL cache, fetches misses from a search backend, and drives a
// two-phase render (table first, asynchronous stock/delivery enrichment
// second) through injected collaborators.
package catalogx

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/way7creation/catalogx/cache"
)

// fetchFailedMessage is the single user-facing text for any fetch-path
// failure, transport or protocol alike.
const fetchFailedMessage = "Failed to load products"

// Controller owns the query state for one catalog view and orchestrates
// fetch, cache, render and enrichment. One instance per view; state is
// never shared across instances.
//
// Mutation methods report true when the mutation was accepted and a
// fetch cycle ran, and false when the mutation was a no-op or arrived
// while a fetch was already in flight. Fetch failures are reported
// through the notifier and never propagate to callers.
type Controller struct {
	fetcher     Fetcher
	cache       *cache.ResultCache[*SearchData]
	renderer    Renderer
	loader      AvailabilityLoader
	notifier    Notifier
	store       StateStore
	searchInput SearchInput
	metrics     MetricsRecorder
	log         *slog.Logger
	debounce    *debouncer

	// loading is the single-flight guard: held for the whole span of an
	// accepted mutation, so at most one fetch is ever in flight and
	// concurrent mutations are rejected rather than queued.
	loading atomic.Bool

	mu            sync.Mutex
	query         QueryState
	result        ResultState
	lastSubmitted string
	cityID        string
}

// New creates a controller around the given search backend. Collaborators
// not supplied through options default to no-ops.
func New(fetcher Fetcher, opts ...Option) *Controller {
	cfg := &config{}
	for _, opt := range opts {
		opt.Apply(cfg)
	}

	c := &Controller{
		fetcher:     fetcher,
		cache:       cache.New[*SearchData](cfg.cacheTTL, cfg.cacheCapacity),
		renderer:    cfg.renderer,
		loader:      cfg.loader,
		notifier:    cfg.notifier,
		store:       cfg.store,
		searchInput: cfg.searchInput,
		metrics:     cfg.metrics,
		log:         cfg.log,
		debounce:    newDebouncer(cfg.debounce),
		query:       DefaultQueryState(),
		cityID:      cfg.cityID,
	}
	if c.renderer == nil {
		c.renderer = nopRenderer{}
	}
	if c.loader == nil {
		c.loader = nopLoader{}
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.store == nil {
		c.store = nopStore{}
	}
	if c.metrics == nil {
		c.metrics = nopRecorder{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}

	if cfg.initial != nil {
		c.applyPersisted(cfg.initial.Sanitize())
	}
	return c
}

// Restore reads the persisted preference record and seeds the query
// state from it. An absent, malformed or unreadable record falls back to
// defaults; Restore never fails.
func (c *Controller) Restore(ctx context.Context) {
	st, err := c.store.Load(ctx)
	if err != nil {
		c.log.Warn("failed to restore catalog state, using defaults", "error", err)
		st = DefaultPersistedState()
	}
	c.applyPersisted(st.Sanitize())
}

func (c *Controller) applyPersisted(st PersistedState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query = QueryState{
		Page:     st.Page,
		PageSize: st.PageSize,
		Sort:     st.Sort,
		Filters:  st.Filters,
	}
	c.lastSubmitted = c.query.SearchText()
}

// Snapshot implements View: it returns copies of the current query and
// result state for renderers.
func (c *Controller) Snapshot() (QueryState, ResultState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.result
	r.Items = append([]Product(nil), c.result.Items...)
	return c.query.Clone(), r
}

// ConsumeDeepLink seeds the search text from the one-time search query
// parameter of u, reflects it into the search-input surface, and returns
// a copy of the URL with the parameter stripped. URLs without the
// parameter are returned unchanged. The seeded text becomes the
// last-submitted query, so re-submitting it later is a no-op.
func (c *Controller) ConsumeDeepLink(u *url.URL) *url.URL {
	values := u.Query()
	term := strings.TrimSpace(values.Get(searchFilter))
	if term == "" {
		return u
	}

	c.mu.Lock()
	if c.query.Filters == nil {
		c.query.Filters = map[string]string{}
	}
	c.query.Filters[searchFilter] = term
	c.lastSubmitted = term
	c.mu.Unlock()

	if c.searchInput != nil {
		c.searchInput.SetText(term)
	}

	values.Del(searchFilter)
	stripped := *u
	stripped.RawQuery = values.Encode()
	return &stripped
}

// Input feeds a raw search-input keystroke. Submissions are coalesced:
// the pending submit is rescheduled on every call and only the value
// present when the interval elapses is submitted.
func (c *Controller) Input(ctx context.Context, text string) {
	deferredCtx := context.WithoutCancel(ctx)
	c.debounce.schedule(func() {
		c.submitSearch(deferredCtx, text)
	})
}

// Submit cancels any pending debounced input and submits text
// immediately. Submitting the value already in effect is a no-op.
func (c *Controller) Submit(ctx context.Context, text string) bool {
	c.debounce.cancel()
	return c.submitSearch(ctx, text)
}

func (c *Controller) submitSearch(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	return c.mutate(ctx, func(q *QueryState) bool {
		if text == c.lastSubmitted {
			return false
		}
		c.lastSubmitted = text
		if text != "" {
			q.Filters[searchFilter] = text
		} else {
			delete(q.Filters, searchFilter)
		}
		q.Page = 1
		return true
	})
}

// ChangePage navigates to page n, clamped into [1, totalPages].
// Requesting the already-current page is a no-op.
func (c *Controller) ChangePage(ctx context.Context, n int) bool {
	return c.mutate(ctx, func(q *QueryState) bool {
		n = clampPage(n, c.result.TotalPages)
		if n == q.Page {
			return false
		}
		q.Page = n
		return true
	})
}

// ChangePageSize switches to one of the enumerated page sizes and resets
// to page 1. Unknown sizes are rejected.
func (c *Controller) ChangePageSize(ctx context.Context, size int) bool {
	if !ValidPageSize(size) {
		c.log.Warn("rejecting unknown page size", "size", size)
		return false
	}
	return c.mutate(ctx, func(q *QueryState) bool {
		if size == q.PageSize {
			return false
		}
		q.PageSize = size
		q.Page = 1
		return true
	})
}

// ToggleSort applies the sort a click on the given table column should
// produce and resets to page 1. The price column alternates between its
// ascending and descending variants; any other column replaces the sort
// key outright.
func (c *Controller) ToggleSort(ctx context.Context, column string) bool {
	return c.mutate(ctx, func(q *QueryState) bool {
		next := SortForColumn(column, q.Sort)
		changed := false
		if next != q.Sort {
			q.Sort = next
			changed = true
		}
		if q.Page != 1 {
			q.Page = 1
			changed = true
		}
		return changed
	})
}

// SetFilter applies a structured filter and resets to page 1. An empty
// value removes the filter; empty values are never stored.
func (c *Controller) SetFilter(ctx context.Context, name, value string) bool {
	if name == "" {
		return false
	}
	return c.mutate(ctx, func(q *QueryState) bool {
		prev, had := q.Filters[name]
		if value == "" {
			if !had {
				return false
			}
			delete(q.Filters, name)
		} else {
			if had && prev == value {
				return false
			}
			q.Filters[name] = value
		}
		q.Page = 1
		return true
	})
}

// RemoveFilter drops a filter and resets to page 1.
func (c *Controller) RemoveFilter(ctx context.Context, name string) bool {
	return c.SetFilter(ctx, name, "")
}

// ClearFilters drops every filter, including the text search, and
// resets to page 1.
func (c *Controller) ClearFilters(ctx context.Context) bool {
	return c.mutate(ctx, func(q *QueryState) bool {
		if len(q.Filters) == 0 && q.Page == 1 && c.lastSubmitted == "" {
			return false
		}
		q.Filters = map[string]string{}
		c.lastSubmitted = ""
		q.Page = 1
		return true
	})
}

// SetCity switches the context discriminator sent with every query. All
// cached results are invalidated and the listing is refetched. The city
// is not part of the persisted query state.
func (c *Controller) SetCity(ctx context.Context, cityID string) bool {
	if !c.loading.CompareAndSwap(false, true) {
		c.log.Debug("fetch already in flight, ignoring city change")
		return false
	}
	defer c.loading.Store(false)

	c.mu.Lock()
	if cityID == c.cityID {
		c.mu.Unlock()
		return false
	}
	c.cityID = cityID
	c.mu.Unlock()

	c.cache.Clear()
	c.refresh(ctx)
	return true
}

// Refresh runs one fetch cycle for the current query state without
// mutating it. Used for the initial load. Returns false when a fetch is
// already in flight.
func (c *Controller) Refresh(ctx context.Context) bool {
	if !c.loading.CompareAndSwap(false, true) {
		c.log.Debug("fetch already in flight, ignoring refresh")
		return false
	}
	defer c.loading.Store(false)

	c.refresh(ctx)
	return true
}

// mutate runs one accepted-mutation span: take the single-flight guard,
// apply the state change, persist, then resolve the query. apply runs
// under the state lock and reports whether the state actually changed; a
// false return releases the guard without fetching or persisting.
func (c *Controller) mutate(ctx context.Context, apply func(q *QueryState) bool) bool {
	if !c.loading.CompareAndSwap(false, true) {
		c.log.Debug("fetch already in flight, ignoring mutation")
		return false
	}
	defer c.loading.Store(false)

	c.mu.Lock()
	if c.query.Filters == nil {
		c.query.Filters = map[string]string{}
	}
	if !apply(&c.query) {
		c.mu.Unlock()
		return false
	}
	persisted := PersistedState{
		Page:     c.query.Page,
		PageSize: c.query.PageSize,
		Sort:     c.query.Sort,
		Filters:  c.query.Clone().Filters,
	}
	c.mu.Unlock()

	// State is persisted before the fetch; nothing further is written on
	// the success path.
	if err := c.store.Save(ctx, persisted); err != nil {
		c.log.Warn("failed to persist catalog state", "error", err)
	}

	c.refresh(ctx)
	return true
}

// refresh resolves the current query: fingerprint, cache lookup, then a
// network fetch on miss. Callers hold the loading guard.
func (c *Controller) refresh(ctx context.Context) {
	c.mu.Lock()
	params := c.query.Params(c.cityID)
	c.mu.Unlock()

	key := Fingerprint(params)

	if data, ok := c.cache.Get(key); ok {
		c.log.Debug("serving catalog page from cache", "key", key)
		c.metrics.RecordCacheHit()
		c.applyResult(ctx, data)
		return
	}
	c.metrics.RecordCacheMiss()

	start := time.Now()
	data, err := c.fetcher.Search(ctx, params)
	c.metrics.RecordFetchLatency(time.Since(start))
	if err != nil {
		c.log.Error("catalog fetch failed", "error", err, "params", key)
		c.metrics.RecordFetchFailure()
		c.notifier.Toast(fetchFailedMessage, true)
		c.renderer.RenderEmpty()
		return
	}
	c.metrics.RecordFetchSuccess()

	c.cache.Put(key, data)
	c.applyResult(ctx, data)
}

// applyResult replaces the result state wholesale, renders the table,
// and dispatches the enrichment phase for the just-rendered rows.
func (c *Controller) applyResult(ctx context.Context, data *SearchData) {
	c.mu.Lock()
	c.result = ResultState{
		Items:      data.Products,
		TotalCount: data.Total,
		TotalPages: TotalPagesFor(data.Total, c.query.PageSize),
	}
	ids := c.result.IDs()
	c.mu.Unlock()

	c.renderer.Render()

	if len(ids) == 0 {
		return
	}
	// Fire and forget: the enrichment call must not block further user
	// interaction, and its failure never reaches the query state machine.
	go c.enrich(context.WithoutCancel(ctx), ids)
}

func (c *Controller) enrich(ctx context.Context, ids []int64) {
	if err := c.loader.Enrich(ctx, ids); err != nil {
		c.metrics.RecordEnrichFailure()
		c.log.Error("availability enrichment failed", "error", err, "product_count", len(ids))
	}
}
