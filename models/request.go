package models

// ExtractRequest is the payload for POST /extract-eurocomp.
type ExtractRequest struct {
	// URL is the product page to extract. Required; must belong to the
	// configured source domain.
	URL string `json:"url" binding:"required"`
}
