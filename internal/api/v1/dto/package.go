package dto

// PackageResponseDTO is returned in API responses for catalog packages.
type PackageResponseDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tokens      int    `json:"tokens"`
	Price       int    `json:"price"`
	Currency    string `json:"currency"`
}
