package catalogx

import (
	"log/slog"
	"time"
)

// Option configures a Controller at construction time.
type Option interface {
	Apply(*config)
}

// config holds all controller configuration parameters.
type config struct {
	renderer      Renderer
	loader        AvailabilityLoader
	notifier      Notifier
	store         StateStore
	searchInput   SearchInput
	metrics       MetricsRecorder
	log           *slog.Logger
	cityID        string
	cacheTTL      time.Duration
	cacheCapacity int
	debounce      time.Duration
	initial       *PersistedState
}

// optionFunc is a function that implements Option.
type optionFunc func(*config)

// Apply implements the Option interface for optionFunc.
func (f optionFunc) Apply(cfg *config) {
	f(cfg)
}

// WithRenderer sets the renderer invoked after every successful fetch.
func WithRenderer(r Renderer) Option {
	return optionFunc(func(cfg *config) {
		cfg.renderer = r
	})
}

// WithAvailabilityLoader sets the loader dispatched after each render to
// enrich rows with stock and delivery data.
func WithAvailabilityLoader(l AvailabilityLoader) Option {
	return optionFunc(func(cfg *config) {
		cfg.loader = l
	})
}

// WithNotifier sets the user-facing notification surface.
func WithNotifier(n Notifier) Option {
	return optionFunc(func(cfg *config) {
		cfg.notifier = n
	})
}

// WithStateStore sets the store persisting UI preferences across sessions.
func WithStateStore(s StateStore) Option {
	return optionFunc(func(cfg *config) {
		cfg.store = s
	})
}

// WithSearchInput sets the surface reflecting deep-linked search text.
func WithSearchInput(s SearchInput) Option {
	return optionFunc(func(cfg *config) {
		cfg.searchInput = s
	})
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return optionFunc(func(cfg *config) {
		cfg.metrics = m
	})
}

// WithLogger sets the structured logger. slog.Default is used otherwise.
func WithLogger(log *slog.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.log = log
	})
}

// WithCity sets the initial context discriminator sent with every query.
func WithCity(cityID string) Option {
	return optionFunc(func(cfg *config) {
		cfg.cityID = cityID
	})
}

// WithCacheTTL bounds the staleness of cached results.
func WithCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.cacheTTL = ttl
	})
}

// WithCacheCapacity bounds the number of cached result sets.
func WithCacheCapacity(n int) Option {
	return optionFunc(func(cfg *config) {
		cfg.cacheCapacity = n
	})
}

// WithDebounce sets the search-input coalescing interval.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(cfg *config) {
		cfg.debounce = d
	})
}

// WithInitialState seeds the query state from an already-loaded persisted
// record instead of the defaults. The record is sanitized before use.
func WithInitialState(st PersistedState) Option {
	return optionFunc(func(cfg *config) {
		cfg.initial = &st
	})
}
