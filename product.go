package catalogx

// Price carries the resolved pricing block of a product row.
type Price struct {
	// Base is the list price before any special pricing.
	Base float64 `json:"base"`
	// Final is the effective price after special pricing.
	Final float64 `json:"final"`
	// HasSpecial reports whether Final differs from Base.
	HasSpecial bool `json:"has_special"`
}

// Stock is the volatile availability block populated by the enrichment phase.
// It is absent in the initial search response.
type Stock struct {
	Quantity int `json:"quantity"`
}

// Delivery is the volatile delivery estimate populated by the enrichment phase.
type Delivery struct {
	Date string `json:"date,omitempty"`
	Text string `json:"text,omitempty"`
}

// Product is a single catalog row as returned by the search endpoint.
// The core treats it as an immutable record except for the identifier,
// which drives the enrichment phase.
type Product struct {
	ID          int64     `json:"product_id"`
	ExternalID  string    `json:"external_id,omitempty"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku,omitempty"`
	BrandName   string    `json:"brand_name,omitempty"`
	SeriesName  string    `json:"series_name,omitempty"`
	Status      string    `json:"status,omitempty"`
	Unit        string    `json:"unit,omitempty"`
	MinSale     int       `json:"min_sale,omitempty"`
	BasePrice   float64   `json:"base_price,omitempty"`
	RetailPrice float64   `json:"retail_price,omitempty"`
	OrdersCount int       `json:"orders_count,omitempty"`
	Images      []string  `json:"images,omitempty"`
	Price       *Price    `json:"price,omitempty"`
	Stock       *Stock    `json:"stock,omitempty"`
	Delivery    *Delivery `json:"delivery,omitempty"`
}

// SearchData is the data member of the search response envelope.
type SearchData struct {
	// Products holds the page of matching rows, in server order.
	// The client never re-sorts.
	Products []Product `json:"products"`

	// Total is the total number of matching products across all pages.
	Total int `json:"total"`
}

// Envelope is the wire shape of every search endpoint response.
// A response with Success false or a nil Data is a protocol failure
// regardless of transport status.
type Envelope struct {
	Success bool        `json:"success"`
	Data    *SearchData `json:"data"`
}

// ResultState is the most recent successfully fetched listing. It is
// replaced wholesale on every successful fetch and left untouched on a
// failed one.
type ResultState struct {
	// Items holds the current page of products in server order.
	Items []Product

	// TotalCount is the total number of matching products.
	TotalCount int

	// TotalPages is ceil(TotalCount / page size), recomputed whenever
	// either input changes.
	TotalPages int
}

// IDs returns the positive product identifiers of the current items,
// in row order. Rows without a usable identifier are skipped.
func (r ResultState) IDs() []int64 {
	ids := make([]int64, 0, len(r.Items))
	for _, p := range r.Items {
		if p.ID > 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// TotalPagesFor computes the page count for a total and a page size.
func TotalPagesFor(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
