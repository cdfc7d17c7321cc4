package catalogx

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeFetcher counts calls and replays a canned response or error.
type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	params  []url.Values
	data    *SearchData
	err     error
	blockOn chan struct{} // when set, Search waits until the channel closes
}

func (f *fakeFetcher) Search(ctx context.Context, params url.Values) (*SearchData, error) {
	f.mu.Lock()
	f.calls++
	f.params = append(f.params, params)
	block := f.blockOn
	data, err := f.data, f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if data == nil {
		return &SearchData{}, nil
	}
	return data, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRenderer struct {
	mu      sync.Mutex
	renders int
	empties int
}

func (r *fakeRenderer) Render() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders++
}

func (r *fakeRenderer) RenderEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.empties++
}

type fakeNotifier struct {
	mu     sync.Mutex
	toasts []string
	errors int
}

func (n *fakeNotifier) Toast(message string, isError bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, message)
	if isError {
		n.errors++
	}
}

type fakeStore struct {
	mu     sync.Mutex
	loaded PersistedState
	saves  []PersistedState
}

func (s *fakeStore) Load(ctx context.Context) (PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded, nil
}

func (s *fakeStore) Save(ctx context.Context, st PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves = append(s.saves, st)
	return nil
}

type fakeLoader struct {
	mu    sync.Mutex
	calls [][]int64
	done  chan struct{}
}

func (l *fakeLoader) Enrich(ctx context.Context, ids []int64) error {
	l.mu.Lock()
	l.calls = append(l.calls, ids)
	l.mu.Unlock()
	if l.done != nil {
		l.done <- struct{}{}
	}
	return nil
}

func productPage(n int, total int) *SearchData {
	products := make([]Product, n)
	for i := range products {
		products[i] = Product{ID: int64(i + 1), Name: "Bolt M8"}
	}
	return &SearchData{Products: products, Total: total}
}

func TestSubmitSameTextIsNoOp(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher)

	if !c.Submit(context.Background(), "bolt") {
		t.Fatal("first submit should be accepted")
	}
	if c.Submit(context.Background(), "bolt") {
		t.Error("re-submitting the same text should be a no-op")
	}
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}

	q, _ := c.Snapshot()
	if q.SearchText() != "bolt" {
		t.Errorf("search text = %q, want %q", q.SearchText(), "bolt")
	}
}

func TestSubmitTrimsAndResetsPage(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 100)}
	c := New(fetcher)

	c.ChangePage(context.Background(), 1) // no-op, page already 1
	c.Refresh(context.Background())
	c.ChangePage(context.Background(), 3)

	c.Submit(context.Background(), "  bolt  ")

	q, _ := c.Snapshot()
	if q.Page != 1 {
		t.Errorf("page = %d, want 1 after search", q.Page)
	}
	if q.SearchText() != "bolt" {
		t.Errorf("search text = %q, want trimmed %q", q.SearchText(), "bolt")
	}
}

func TestChangePageClampsToTotalPages(t *testing.T) {
	// Page size 20 with 45 matches gives 3 pages.
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher)
	c.Refresh(context.Background())

	if !c.ChangePage(context.Background(), 5) {
		t.Fatal("out-of-range page request should still navigate after clamping")
	}
	q, r := c.Snapshot()
	if r.TotalPages != 3 {
		t.Fatalf("totalPages = %d, want 3", r.TotalPages)
	}
	if q.Page != 3 {
		t.Errorf("page = %d, want clamp to 3", q.Page)
	}

	if c.ChangePage(context.Background(), 99) {
		t.Error("requesting a page that clamps to the current one should be a no-op")
	}
	if c.ChangePage(context.Background(), -4) {
		t.Error("negative pages clamp to 1 and should navigate")
	}
	q, _ = c.Snapshot()
	if q.Page != 1 {
		t.Errorf("page = %d, want clamp to 1", q.Page)
	}
}

func TestChangePageCurrentPageIsNoOp(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher)
	c.Refresh(context.Background())

	before := fetcher.callCount()
	if c.ChangePage(context.Background(), 1) {
		t.Error("requesting the current page should be a no-op")
	}
	if fetcher.callCount() != before {
		t.Error("no-op page change must not fetch")
	}
}

func TestChangePageSize(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	store := &fakeStore{}
	c := New(fetcher, WithStateStore(store))
	c.Refresh(context.Background())
	c.ChangePage(context.Background(), 2)

	if !c.ChangePageSize(context.Background(), 50) {
		t.Fatal("valid page size change should be accepted")
	}
	q, _ := c.Snapshot()
	if q.PageSize != 50 {
		t.Errorf("pageSize = %d, want 50", q.PageSize)
	}
	if q.Page != 1 {
		t.Errorf("page = %d, want reset to 1", q.Page)
	}

	if c.ChangePageSize(context.Background(), 50) {
		t.Error("changing to the current page size should be a no-op")
	}
	if c.ChangePageSize(context.Background(), 37) {
		t.Error("unknown page size should be rejected")
	}
}

func TestToggleSortPriceColumn(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	c := New(fetcher)

	c.ToggleSort(context.Background(), "price")
	q, _ := c.Snapshot()
	if q.Sort != SortPriceAsc {
		t.Fatalf("sort = %q, want %q", q.Sort, SortPriceAsc)
	}

	c.ToggleSort(context.Background(), "price")
	q, _ = c.Snapshot()
	if q.Sort != SortPriceDesc {
		t.Fatalf("sort = %q, want %q after second click", q.Sort, SortPriceDesc)
	}

	c.ToggleSort(context.Background(), "price")
	q, _ = c.Snapshot()
	if q.Sort != SortPriceAsc {
		t.Fatalf("sort = %q, want %q after third click", q.Sort, SortPriceAsc)
	}

	// A non-price column always yields its canonical key.
	c.ToggleSort(context.Background(), "name")
	q, _ = c.Snapshot()
	if q.Sort != SortName {
		t.Errorf("sort = %q, want %q", q.Sort, SortName)
	}
	if c.ToggleSort(context.Background(), "name") {
		t.Error("re-clicking a non-price column at page 1 should be a no-op")
	}
}

func TestFilterMutationsResetPage(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 100)}
	c := New(fetcher)
	c.Refresh(context.Background())

	tests := []struct {
		name   string
		mutate func() bool
	}{
		{"set_filter", func() bool {
			return c.SetFilter(context.Background(), "brandFilter", "WAGO")
		}},
		{"remove_filter", func() bool {
			return c.RemoveFilter(context.Background(), "brandFilter")
		}},
		{"clear_filters", func() bool {
			c.SetFilter(context.Background(), "seriesFilter", "221")
			return c.ClearFilters(context.Background())
		}},
	}

	for _, tc := range tests {
		name, mutate := tc.name, tc.mutate
		t.Run(name, func(t *testing.T) {
			c.ChangePage(context.Background(), 3)
			if !mutate() {
				t.Fatal("mutation should be accepted")
			}
			q, _ := c.Snapshot()
			if q.Page != 1 {
				t.Errorf("page = %d, want reset to 1", q.Page)
			}
		})
	}
}

func TestSetFilterEmptyValueRemoves(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	c := New(fetcher)

	c.SetFilter(context.Background(), "brandFilter", "WAGO")
	if !c.SetFilter(context.Background(), "brandFilter", "") {
		t.Fatal("clearing an applied filter should be accepted")
	}
	q, _ := c.Snapshot()
	if _, ok := q.Filters["brandFilter"]; ok {
		t.Error("empty filter value must be removed, never stored")
	}

	if c.SetFilter(context.Background(), "brandFilter", "") {
		t.Error("removing an absent filter should be a no-op")
	}
	if c.SetFilter(context.Background(), "", "x") {
		t.Error("empty filter name should be rejected")
	}
}

func TestSetFilterSameValueIsNoOp(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	c := New(fetcher)

	c.SetFilter(context.Background(), "brandFilter", "WAGO")
	before := fetcher.callCount()
	if c.SetFilter(context.Background(), "brandFilter", "WAGO") {
		t.Error("re-applying the identical filter should be a no-op")
	}
	if fetcher.callCount() != before {
		t.Error("no-op filter change must not fetch")
	}
}

func TestSingleFlightRejectsConcurrentMutations(t *testing.T) {
	release := make(chan struct{})
	fetcher := &fakeFetcher{data: productPage(20, 100), blockOn: release}
	c := New(fetcher)

	started := make(chan struct{})
	var firstAccepted atomic.Bool
	go func() {
		close(started)
		firstAccepted.Store(c.Submit(context.Background(), "bolt"))
	}()
	<-started

	// Wait for the first fetch to actually be in flight.
	deadline := time.After(2 * time.Second)
	for fetcher.callCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first fetch never started")
		case <-time.After(time.Millisecond):
		}
	}

	if c.ChangePage(context.Background(), 2) {
		t.Error("mutation during an in-flight fetch must be rejected")
	}
	if c.Refresh(context.Background()) {
		t.Error("refresh during an in-flight fetch must be rejected")
	}

	close(release)
	for c.loading.Load() {
		time.Sleep(time.Millisecond)
	}
	if !firstAccepted.Load() {
		t.Error("first mutation should have been accepted")
	}
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("expected exactly 1 fetch, got %d", got)
	}

	// The guard re-arms once the fetch resolves.
	if !c.ChangePage(context.Background(), 2) {
		t.Error("mutations should be accepted again after the fetch resolves")
	}
}

func TestCacheServesRepeatedQuery(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher)

	c.Submit(context.Background(), "bolt")
	c.ChangePage(context.Background(), 2)
	c.ChangePage(context.Background(), 1)

	// Page 1 of the bolt query was fetched once and must now come from
	// cache: two pages, two network calls total.
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}

func TestCacheExpiryTriggersRefetch(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher, WithCacheTTL(30*time.Millisecond))

	c.Refresh(context.Background())
	c.Refresh(context.Background())
	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected second refresh to hit cache, got %d fetches", got)
	}

	time.Sleep(50 * time.Millisecond)
	c.Refresh(context.Background())
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("expected refetch after TTL elapsed, got %d fetches", got)
	}
}

func TestSetCityClearsCache(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	c := New(fetcher, WithCity("1"))

	c.Refresh(context.Background())
	if !c.SetCity(context.Background(), "2") {
		t.Fatal("city change should be accepted")
	}
	if c.SetCity(context.Background(), "2") {
		t.Error("setting the current city should be a no-op")
	}
	// Same parameters as the first fetch except the discriminator, plus
	// the cache was cleared, so both cycles hit the network.
	if got := fetcher.callCount(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
	last := fetcher.params[len(fetcher.params)-1]
	if last.Get("city_id") != "2" {
		t.Errorf("city_id = %q, want %q", last.Get("city_id"), "2")
	}
}

func TestFetchFailureKeepsPriorResults(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	renderer := &fakeRenderer{}
	notifier := &fakeNotifier{}
	c := New(fetcher, WithRenderer(renderer), WithNotifier(notifier))

	c.Refresh(context.Background())
	_, before := c.Snapshot()
	if len(before.Items) != 20 {
		t.Fatalf("expected 20 items, got %d", len(before.Items))
	}

	fetcher.mu.Lock()
	fetcher.err = ErrProtocol
	fetcher.mu.Unlock()

	if !c.Submit(context.Background(), "bolt") {
		t.Fatal("the mutation itself is accepted even though the fetch fails")
	}

	_, after := c.Snapshot()
	if len(after.Items) != len(before.Items) || after.TotalCount != before.TotalCount {
		t.Error("prior result state must be left untouched on failure")
	}
	if notifier.errors != 1 {
		t.Errorf("expected exactly one failure toast, got %d", notifier.errors)
	}
	if renderer.empties != 1 {
		t.Errorf("expected one empty/error render, got %d", renderer.empties)
	}
	if renderer.renders != 1 {
		t.Errorf("expected the successful fetch to render once, got %d", renderer.renders)
	}

	// The guard re-arms after failure.
	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.mu.Unlock()
	if !c.ChangePage(context.Background(), 2) {
		t.Error("mutations should be accepted after a failed fetch")
	}
}

func TestEnrichmentDispatchedAfterRender(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(3, 3)}
	loader := &fakeLoader{done: make(chan struct{}, 1)}
	renderer := &fakeRenderer{}
	c := New(fetcher, WithAvailabilityLoader(loader), WithRenderer(renderer))

	c.Refresh(context.Background())

	select {
	case <-loader.done:
	case <-time.After(2 * time.Second):
		t.Fatal("availability loader was never invoked")
	}

	loader.mu.Lock()
	defer loader.mu.Unlock()
	if len(loader.calls) != 1 {
		t.Fatalf("expected 1 enrichment call, got %d", len(loader.calls))
	}
	want := []int64{1, 2, 3}
	got := loader.calls[0]
	if len(got) != len(want) {
		t.Fatalf("ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestEnrichmentSkippedForEmptyResult(t *testing.T) {
	fetcher := &fakeFetcher{data: &SearchData{Products: nil, Total: 0}}
	loader := &fakeLoader{}
	c := New(fetcher, WithAvailabilityLoader(loader))

	c.Refresh(context.Background())
	time.Sleep(20 * time.Millisecond)

	loader.mu.Lock()
	defer loader.mu.Unlock()
	if len(loader.calls) != 0 {
		t.Errorf("enrichment must be skipped for an empty id list, got %d calls", len(loader.calls))
	}
}

func TestStatePersistedBeforeFetch(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(20, 45)}
	store := &fakeStore{}
	c := New(fetcher, WithStateStore(store))

	c.Submit(context.Background(), "bolt")

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.saves) != 1 {
		t.Fatalf("expected 1 save, got %d", len(store.saves))
	}
	saved := store.saves[0]
	if saved.Page != 1 || saved.Filters["search"] != "bolt" {
		t.Errorf("saved record = %+v, want page 1 with search filter", saved)
	}
}

func TestRestoreSanitizesRecord(t *testing.T) {
	fetcher := &fakeFetcher{}
	store := &fakeStore{loaded: PersistedState{
		Page:     -3,
		PageSize: 37,
		Sort:     SortKey("bogus"),
		Filters:  map[string]string{"brandFilter": "WAGO", "empty": ""},
	}}
	c := New(fetcher, WithStateStore(store))
	c.Restore(context.Background())

	q, _ := c.Snapshot()
	if q.Page != 1 {
		t.Errorf("page = %d, want 1", q.Page)
	}
	if q.PageSize != DefaultPageSize {
		t.Errorf("pageSize = %d, want default %d", q.PageSize, DefaultPageSize)
	}
	if q.Sort != DefaultSort {
		t.Errorf("sort = %q, want default %q", q.Sort, DefaultSort)
	}
	if _, ok := q.Filters["empty"]; ok {
		t.Error("empty filter values must be dropped on restore")
	}
	if q.Filters["brandFilter"] != "WAGO" {
		t.Error("valid filters must survive restore")
	}
}

type fakeInput struct {
	mu   sync.Mutex
	text string
}

func (f *fakeInput) SetText(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
}

func TestConsumeDeepLink(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	input := &fakeInput{}
	c := New(fetcher, WithSearchInput(input))

	u, _ := url.Parse("https://shop.example/catalog?search=bolt%20m8&tab=all")
	stripped := c.ConsumeDeepLink(u)

	if stripped.Query().Get("search") != "" {
		t.Error("search parameter must be stripped from the URL")
	}
	if stripped.Query().Get("tab") != "all" {
		t.Error("unrelated parameters must survive")
	}

	q, _ := c.Snapshot()
	if q.SearchText() != "bolt m8" {
		t.Errorf("seeded search text = %q, want %q", q.SearchText(), "bolt m8")
	}
	if input.text != "bolt m8" {
		t.Errorf("input surface text = %q, want %q", input.text, "bolt m8")
	}

	// The seeded term counts as submitted: re-submitting it is a no-op.
	if c.Submit(context.Background(), "bolt m8") {
		t.Error("submitting the deep-linked term again should be a no-op")
	}

	// URLs without the parameter pass through untouched.
	plain, _ := url.Parse("https://shop.example/catalog?tab=all")
	if got := c.ConsumeDeepLink(plain); got != plain {
		t.Error("URL without a search parameter should be returned unchanged")
	}
}

func TestInputDebouncesKeystrokes(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	c := New(fetcher, WithDebounce(30*time.Millisecond))

	c.Input(context.Background(), "b")
	c.Input(context.Background(), "bo")
	c.Input(context.Background(), "bol")
	c.Input(context.Background(), "bolt")

	time.Sleep(120 * time.Millisecond)

	if got := fetcher.callCount(); got != 1 {
		t.Fatalf("expected 1 coalesced fetch, got %d", got)
	}
	q, _ := c.Snapshot()
	if q.SearchText() != "bolt" {
		t.Errorf("search text = %q, want the last typed value %q", q.SearchText(), "bolt")
	}
}

func TestSubmitCancelsPendingDebounce(t *testing.T) {
	fetcher := &fakeFetcher{data: productPage(5, 5)}
	c := New(fetcher, WithDebounce(40*time.Millisecond))

	c.Input(context.Background(), "bol")
	if !c.Submit(context.Background(), "bolt") {
		t.Fatal("explicit submit should be accepted immediately")
	}

	time.Sleep(100 * time.Millisecond)

	// The pending "bol" submit was canceled; only "bolt" fetched.
	if got := fetcher.callCount(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
	q, _ := c.Snapshot()
	if q.SearchText() != "bolt" {
		t.Errorf("search text = %q, want %q", q.SearchText(), "bolt")
	}
}
