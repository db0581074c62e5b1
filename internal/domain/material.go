package domain

import (
	"strings"
	"unicode/utf8"
)

// Material field limits.
const (
	MaxMaterialNameLength    = 120
	MaxMarketIDLength        = 50
	MaxSellerLength          = 120
	MaxMaterialPictureLength = 255
)

// Material is a supply item in the shared catalog.
// Name and MarketID are each unique across the catalog.
type Material struct {
	// ID is the unique identifier for the material (auto-generated).
	ID int64 `json:"id"`

	// Name is the unique display name.
	Name string `json:"name"`

	// MarketID is the unique marketplace identifier.
	MarketID string `json:"marketId"`

	// Seller is the optional vendor name.
	Seller string `json:"seller,omitempty"`

	// PictureURL is an optional link to a picture of the item.
	PictureURL string `json:"pictureUrl,omitempty"`
}

// ValidateMaterial checks the material fields against the catalog limits.
func ValidateMaterial(m *Material) error {
	if strings.TrimSpace(m.Name) == "" {
		return NewDomainError(ErrInvalidMaterial, "name is required", "")
	}
	if utf8.RuneCountInString(m.Name) > MaxMaterialNameLength {
		return NewDomainError(ErrInvalidMaterial, "name exceeds 120 characters", "")
	}
	if strings.TrimSpace(m.MarketID) == "" {
		return NewDomainError(ErrInvalidMaterial, "marketId is required", "")
	}
	if utf8.RuneCountInString(m.MarketID) > MaxMarketIDLength {
		return NewDomainError(ErrInvalidMaterial, "marketId exceeds 50 characters", "")
	}
	if utf8.RuneCountInString(m.Seller) > MaxSellerLength {
		return NewDomainError(ErrInvalidMaterial, "seller exceeds 120 characters", "")
	}
	if utf8.RuneCountInString(m.PictureURL) > MaxMaterialPictureLength {
		return NewDomainError(ErrInvalidMaterial, "pictureUrl exceeds 255 characters", "")
	}
	return nil
}
