package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultOrder   ResultType = "order"
	ResultVendor  ResultType = "vendor"
	ResultProduct ResultType = "product"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// OrderRecord is the data we index for an order.
type OrderRecord struct {
	ID         string `json:"id"`
	ClientName string `json:"clientName"`
	FloorPlan  string `json:"floorPlan"`
	Status     string `json:"status"`
}

// VendorRecord is the data we index for a vendor.
type VendorRecord struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContactName string `json:"contactName"`
	Email       string `json:"email"`
	Notes       string `json:"notes"`
}

// ProductRecord is the data we index for a product.
type ProductRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	VendorID string `json:"vendorId"`
}
