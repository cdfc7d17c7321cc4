package catalogx

import (
	"context"
	"net/url"
	"time"
)

// Fetcher executes a catalog search against a backend with the given
// outgoing parameter set.
type Fetcher interface {
	// Search performs the search and returns the decoded data member of
	// the response envelope. Implementations return ErrTransport,
	// ErrProtocol, ErrTimeout or ErrCanceled (possibly wrapped) so the
	// controller can treat every failure uniformly.
	Search(ctx context.Context, params url.Values) (*SearchData, error)
}

// FetcherFunc is a function type that implements the Fetcher interface.
// This allows using a function as a Fetcher, similar to http.HandlerFunc.
type FetcherFunc func(context.Context, url.Values) (*SearchData, error)

// Search implements the Fetcher interface for FetcherFunc.
func (f FetcherFunc) Search(ctx context.Context, params url.Values) (*SearchData, error) {
	return f(ctx, params)
}

// View is the read-only state surface the controller exposes to renderers.
type View interface {
	// Snapshot returns copies of the current query and result state.
	Snapshot() (QueryState, ResultState)
}

// ViewFunc adapts a function to the View interface. Useful when the
// view target is constructed after its renderer.
type ViewFunc func() (QueryState, ResultState)

func (f ViewFunc) Snapshot() (QueryState, ResultState) { return f() }

// Renderer turns the current result state into a visible table. It is
// invoked once per successful fetch, must be idempotent, and must handle
// the zero-result case itself.
type Renderer interface {
	// Render draws the table from the current View state.
	Render()

	// RenderEmpty draws the explicit empty/error presentation shown when
	// a fetch fails. Prior result state is not consulted.
	RenderEmpty()
}

// AvailabilityLoader resolves volatile per-product stock and delivery
// data for already-rendered rows. The controller dispatches it after the
// table render and never awaits or retries it.
type AvailabilityLoader interface {
	Enrich(ctx context.Context, productIDs []int64) error
}

// CartService adds products to the shopping cart. It is an opaque
// side-effecting collaborator; the controller core never calls it.
type CartService interface {
	AddToCart(ctx context.Context, productID int64, quantity int) error
}

// Notifier is the user-facing notification surface.
type Notifier interface {
	Toast(message string, isError bool)
}

// SearchInput is an optional surface reflecting deep-linked search text
// back into the visible input field.
type SearchInput interface {
	SetText(text string)
}

// PersistedState is the single record written to the preference store
// after every accepted mutation. Writes are full-state overwrites.
type PersistedState struct {
	Page     int               `json:"page"`
	PageSize int               `json:"pageSize"`
	Sort     SortKey           `json:"sortKey"`
	Filters  map[string]string `json:"filters"`
}

// DefaultPersistedState returns the record used when nothing has been
// persisted yet or a stored record is malformed.
func DefaultPersistedState() PersistedState {
	return PersistedState{
		Page:     1,
		PageSize: DefaultPageSize,
		Sort:     DefaultSort,
		Filters:  map[string]string{},
	}
}

// Sanitize coerces a restored record into a valid one: the page is
// floored at 1, unknown page sizes and sort keys fall back to defaults,
// and filter keys with empty values are dropped.
func (p PersistedState) Sanitize() PersistedState {
	if p.Page < 1 {
		p.Page = 1
	}
	if !ValidPageSize(p.PageSize) {
		p.PageSize = DefaultPageSize
	}
	if !p.Sort.Valid() {
		p.Sort = DefaultSort
	}
	filters := make(map[string]string, len(p.Filters))
	for name, value := range p.Filters {
		if name != "" && value != "" {
			filters[name] = value
		}
	}
	p.Filters = filters
	return p
}

// StateStore persists UI preferences across sessions under one
// well-known key. Load never fails on absent or malformed records; it
// falls back to defaults instead.
type StateStore interface {
	Load(ctx context.Context) (PersistedState, error)
	Save(ctx context.Context, state PersistedState) error
}

// MetricsRecorder receives controller-level counters. All methods are
// called from the fetch path; implementations must be cheap.
type MetricsRecorder interface {
	RecordFetchSuccess()
	RecordFetchFailure()
	RecordCacheHit()
	RecordCacheMiss()
	RecordEnrichFailure()
	RecordFetchLatency(d time.Duration)
}

// No-op collaborator defaults used when a dependency is not injected.
type (
	nopRenderer struct{}
	nopLoader   struct{}
	nopNotifier struct{}
	nopStore    struct{}
	nopRecorder struct{}
)

func (nopRenderer) Render()      {}
func (nopRenderer) RenderEmpty() {}

func (nopLoader) Enrich(context.Context, []int64) error { return nil }

func (nopNotifier) Toast(string, bool) {}

func (nopStore) Load(context.Context) (PersistedState, error) {
	return DefaultPersistedState(), nil
}
func (nopStore) Save(context.Context, PersistedState) error { return nil }

func (nopRecorder) RecordFetchSuccess()              {}
func (nopRecorder) RecordFetchFailure()              {}
func (nopRecorder) RecordCacheHit()                  {}
func (nopRecorder) RecordCacheMiss()                 {}
func (nopRecorder) RecordEnrichFailure()             {}
func (nopRecorder) RecordFetchLatency(time.Duration) {}
