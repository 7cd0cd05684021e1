package models

// ExtractionResult is the response for POST /extract-eurocomp.
//
// Every field is always present. A field whose selectors matched nothing is
// the empty string.
type ExtractionResult struct {
	Name string `json:"name"`

	// PriceUSD is the matched numeric run with thousands separators removed,
	// e.g. "1299.50". Empty unless the price parsed as a number > 0.
	PriceUSD string `json:"price_usd"`

	// PriceCRC is PriceUSD with tax and exchange rate applied, rounded to a
	// whole number. Empty exactly when PriceUSD is empty.
	PriceCRC string `json:"price_crc"`

	// Image is the absolute URL of the product image.
	Image string `json:"image"`

	Description string `json:"description"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Received echoes the rejected URL on validation failures.
	Received string `json:"received,omitempty"`
}

// HealthResponse is the response for GET /.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Uptime    string    `json:"uptime"`
	Navigator string    `json:"navigator"`
	PoolStats PoolStats `json:"pool_stats"`
}

// PoolStats reports the state of the browser page pool.
type PoolStats struct {
	MaxPages    int `json:"max_pages"`
	ActivePages int `json:"active_pages"`
}
