// Package memfetch provides an in-memory catalogx.Fetcher over a static
// product set. It backs the CLI demo mode and integration-style tests
// that need real filtering, sorting and pagination without a backend.
package memfetch

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/way7creation/catalogx"
)

// Fetcher implements catalogx.Fetcher against an in-memory catalog.
type Fetcher struct {
	mu       sync.RWMutex
	products []catalogx.Product
}

// New creates an empty in-memory fetcher.
func New() *Fetcher {
	return &Fetcher{}
}

// Add appends products to the catalog. Safe for concurrent use.
func (f *Fetcher) Add(products ...catalogx.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = append(f.products, products...)
}

// Clear removes all products.
func (f *Fetcher) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products = nil
}

// Size returns the number of products in the catalog.
func (f *Fetcher) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.products)
}

// Search implements catalogx.Fetcher: term matching, equality filters,
// server-side sort and offset pagination over the in-memory set.
func (f *Fetcher) Search(ctx context.Context, params url.Values) (*catalogx.SearchData, error) {
	select {
	case <-ctx.Done():
		return nil, catalogx.ErrCanceled
	default:
	}

	page, _ := strconv.Atoi(params.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(params.Get("limit"))
	if limit < 1 {
		limit = catalogx.DefaultPageSize
	}
	query := strings.ToLower(strings.TrimSpace(params.Get("q")))
	sortKey := catalogx.SortKey(params.Get("sort"))

	f.mu.RLock()
	defer f.mu.RUnlock()

	var matches []catalogx.Product
	for _, p := range f.products {
		if !matchesQuery(p, query) {
			continue
		}
		if !matchesFilters(p, params) {
			continue
		}
		matches = append(matches, p)
	}

	sortProducts(matches, sortKey)

	total := len(matches)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	return &catalogx.SearchData{
		Products: append([]catalogx.Product(nil), matches[start:end]...),
		Total:    total,
	}, nil
}

// matchesQuery reports whether every whitespace-separated term of the
// query occurs in one of the product's text fields.
func matchesQuery(p catalogx.Product, query string) bool {
	if query == "" {
		return true
	}
	haystack := strings.ToLower(strings.Join([]string{
		p.Name, p.SKU, p.ExternalID, p.BrandName, p.SeriesName,
	}, " "))
	for _, term := range strings.Fields(query) {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// filterFields maps structured filter names onto product fields.
var filterFields = map[string]func(catalogx.Product) string{
	"brandFilter":  func(p catalogx.Product) string { return p.BrandName },
	"seriesFilter": func(p catalogx.Product) string { return p.SeriesName },
	"status":       func(p catalogx.Product) string { return p.Status },
}

func matchesFilters(p catalogx.Product, params url.Values) bool {
	for name, field := range filterFields {
		want := params.Get(name)
		if want == "" {
			continue
		}
		if !strings.EqualFold(field(p), want) {
			return false
		}
	}
	return true
}

func price(p catalogx.Product) float64 {
	if p.Price != nil && p.Price.Final > 0 {
		return p.Price.Final
	}
	return p.BasePrice
}

func sortProducts(products []catalogx.Product, key catalogx.SortKey) {
	less := func(a, b catalogx.Product) bool { return a.ID < b.ID }
	switch key {
	case catalogx.SortName:
		less = func(a, b catalogx.Product) bool { return a.Name < b.Name }
	case catalogx.SortExternalID:
		less = func(a, b catalogx.Product) bool { return a.ExternalID < b.ExternalID }
	case catalogx.SortPriceAsc:
		less = func(a, b catalogx.Product) bool { return price(a) < price(b) }
	case catalogx.SortPriceDesc:
		less = func(a, b catalogx.Product) bool { return price(a) > price(b) }
	case catalogx.SortAvailability:
		less = func(a, b catalogx.Product) bool { return quantity(a) > quantity(b) }
	case catalogx.SortPopularity:
		less = func(a, b catalogx.Product) bool { return a.OrdersCount > b.OrdersCount }
	case catalogx.SortRelevance:
		// Insertion order stands in for relevance.
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		return less(products[i], products[j])
	})
}

func quantity(p catalogx.Product) int {
	if p.Stock == nil {
		return 0
	}
	return p.Stock.Quantity
}

// SampleCatalog returns a small fastener-and-terminal catalog used by
// the CLI demo mode.
func SampleCatalog() []catalogx.Product {
	return []catalogx.Product{
		{ID: 1, ExternalID: "BLT-M8-40", Name: "Hex bolt M8x40", SKU: "100481", BrandName: "Fischer", Status: "active", MinSale: 10, Unit: "pcs", BasePrice: 4.20, OrdersCount: 311},
		{ID: 2, ExternalID: "BLT-M8-60", Name: "Hex bolt M8x60", SKU: "100482", BrandName: "Fischer", Status: "active", MinSale: 10, Unit: "pcs", BasePrice: 5.10, OrdersCount: 123},
		{ID: 3, ExternalID: "NUT-M8", Name: "Hex nut M8", SKU: "100510", BrandName: "Fischer", Status: "active", MinSale: 25, Unit: "pcs", BasePrice: 1.15, OrdersCount: 540},
		{ID: 4, ExternalID: "WG-221-412", Name: "Compact splicing connector 2x4", SKU: "221412", BrandName: "WAGO", SeriesName: "221", Status: "active", MinSale: 1, Unit: "pcs", BasePrice: 38.00, RetailPrice: 45.00, OrdersCount: 902},
		{ID: 5, ExternalID: "WG-221-413", Name: "Compact splicing connector 3x4", SKU: "221413", BrandName: "WAGO", SeriesName: "221", Status: "active", MinSale: 1, Unit: "pcs", BasePrice: 52.00, RetailPrice: 61.00, OrdersCount: 764},
		{ID: 6, ExternalID: "WG-2273-243", Name: "Push wire connector 3x2.5", SKU: "2273243", BrandName: "WAGO", SeriesName: "2273", Status: "active", MinSale: 1, Unit: "pcs", BasePrice: 21.40, OrdersCount: 233},
		{ID: 7, ExternalID: "TRM-NSYTRV42", Name: "Terminal block NSYTRV 4mm", SKU: "900231", BrandName: "Schneider", SeriesName: "Linergy", Status: "active", MinSale: 5, Unit: "pcs", BasePrice: 64.90, OrdersCount: 87},
		{ID: 8, ExternalID: "TRM-NSYTRV62", Name: "Terminal block NSYTRV 6mm", SKU: "900232", BrandName: "Schneider", SeriesName: "Linergy", Status: "inactive", MinSale: 5, Unit: "pcs", BasePrice: 81.30, OrdersCount: 12},
		{ID: 9, ExternalID: "SCR-35-16", Name: "Self-tapping screw 3.5x16", SKU: "100733", BrandName: "Fischer", Status: "active", MinSale: 100, Unit: "pcs", BasePrice: 0.45, OrdersCount: 1204},
		{ID: 10, ExternalID: "ANC-10-50", Name: "Wedge anchor 10x50", SKU: "101120", BrandName: "Fischer", Status: "active", MinSale: 20, Unit: "pcs", BasePrice: 7.80, OrdersCount: 356},
	}
}
