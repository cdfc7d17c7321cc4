package catalogx

import (
	"maps"
	"net/url"
	"slices"
	"strconv"
)

// SortKey identifies a server-side sort order.
type SortKey string

const (
	// SortRelevance orders by match relevance. This is the default.
	SortRelevance SortKey = "relevance"
	// SortName orders by product name.
	SortName SortKey = "name"
	// SortExternalID orders by the external product code.
	SortExternalID SortKey = "external_id"
	// SortPriceAsc orders by price, cheapest first.
	SortPriceAsc SortKey = "price_asc"
	// SortPriceDesc orders by price, most expensive first.
	SortPriceDesc SortKey = "price_desc"
	// SortAvailability orders by stock availability.
	SortAvailability SortKey = "availability"
	// SortPopularity orders by order count.
	SortPopularity SortKey = "popularity"
)

// Valid reports whether s is one of the known sort keys.
func (s SortKey) Valid() bool {
	switch s {
	case SortRelevance, SortName, SortExternalID, SortPriceAsc,
		SortPriceDesc, SortAvailability, SortPopularity:
		return true
	}
	return false
}

// IsPrice reports whether s is one of the two price variants.
func (s SortKey) IsPrice() bool {
	return s == SortPriceAsc || s == SortPriceDesc
}

// PageSizes enumerates the permitted page sizes.
var PageSizes = []int{10, 20, 50, 100}

// Defaults applied when no persisted state exists or a restored record
// is malformed.
const (
	DefaultPageSize = 20
	DefaultSort     = SortRelevance
)

// searchFilter is the filter key holding the submitted free-text query.
// It is persisted with the other filters but sent as the q parameter.
const searchFilter = "search"

// columnSort maps sortable table columns to their canonical sort keys.
var columnSort = map[string]SortKey{
	"name":         SortName,
	"external_id":  SortExternalID,
	"price":        SortPriceAsc,
	"availability": SortAvailability,
	"orders_count": SortPopularity,
}

// SortForColumn resolves the sort key a click on column should produce
// given the current key. The price column toggles between its ascending
// and descending variants; every other column replaces the key outright.
func SortForColumn(column string, current SortKey) SortKey {
	key, ok := columnSort[column]
	if !ok {
		key = SortRelevance
	}
	if key == SortPriceAsc && current.IsPrice() {
		if current == SortPriceAsc {
			return SortPriceDesc
		}
		return SortPriceAsc
	}
	return key
}

// QueryState is the persisted set of parameters defining the next search.
// The submitted search text lives in Filters under the "search" key,
// matching the persisted record layout.
type QueryState struct {
	// Page is 1-indexed and clamped to [1, totalPages] once the page
	// count is known.
	Page int

	// PageSize is one of PageSizes. Changing it resets Page to 1.
	PageSize int

	// Sort is the active sort key.
	Sort SortKey

	// Filters maps filter names to values. A key is either present with
	// a non-empty value or absent; empty values are never stored.
	Filters map[string]string
}

// DefaultQueryState returns the startup state before any persisted
// record is restored.
func DefaultQueryState() QueryState {
	return QueryState{
		Page:     1,
		PageSize: DefaultPageSize,
		Sort:     DefaultSort,
		Filters:  map[string]string{},
	}
}

// SearchText returns the submitted free-text query, or "" when no text
// filter is in effect.
func (s QueryState) SearchText() string {
	return s.Filters[searchFilter]
}

// Equal reports whether two states are logically identical.
func (s QueryState) Equal(o QueryState) bool {
	return s.Page == o.Page &&
		s.PageSize == o.PageSize &&
		s.Sort == o.Sort &&
		maps.Equal(s.Filters, o.Filters)
}

// Clone returns a deep copy; the filter map is never aliased between
// the controller and its callers.
func (s QueryState) Clone() QueryState {
	c := s
	c.Filters = maps.Clone(s.Filters)
	if c.Filters == nil {
		c.Filters = map[string]string{}
	}
	return c
}

// ValidPageSize reports whether n is one of the permitted page sizes.
func ValidPageSize(n int) bool {
	return slices.Contains(PageSizes, n)
}

// Params builds the outgoing request parameter set for the state and the
// given city discriminator. Parameters with empty values are never sent;
// the search text filter travels as q.
func (s QueryState) Params(cityID string) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(s.Page))
	v.Set("limit", strconv.Itoa(s.PageSize))
	v.Set("sort", string(s.Sort))
	if cityID != "" {
		v.Set("city_id", cityID)
	}
	if q := s.Filters[searchFilter]; q != "" {
		v.Set("q", q)
	}
	for name, value := range s.Filters {
		if name == searchFilter || value == "" {
			continue
		}
		v.Set(name, value)
	}
	return v
}

// Fingerprint serializes a parameter set into a deterministic cache key.
// Two logically identical parameter sets produce the same key regardless
// of construction order.
func Fingerprint(params url.Values) string {
	return params.Encode()
}

// clampPage clamps a requested page into [1, totalPages]. A zero page
// count (no results fetched yet) clamps to page 1.
func clampPage(n, totalPages int) int {
	if n > totalPages {
		n = totalPages
	}
	if n < 1 {
		n = 1
	}
	return n
}
