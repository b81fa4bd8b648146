package model

import (
	"strings"
	"time"
)

// ProductType is the broad category of a spirit.
type ProductType string

// Product types accepted from producers.
const (
	ProductBourbon    ProductType = "bourbon"
	ProductScotch     ProductType = "scotch"
	ProductIrish      ProductType = "irish"
	ProductRye        ProductType = "rye"
	ProductJapanese   ProductType = "japanese"
	ProductCanadian   ProductType = "canadian"
	ProductSingleMalt ProductType = "single_malt"
	ProductBlended    ProductType = "blended"
	ProductOther      ProductType = "other"
)

var productTypes = map[string]ProductType{
	"bourbon":     ProductBourbon,
	"scotch":      ProductScotch,
	"irish":       ProductIrish,
	"rye":         ProductRye,
	"japanese":    ProductJapanese,
	"canadian":    ProductCanadian,
	"single_malt": ProductSingleMalt,
	"blended":     ProductBlended,
	"other":       ProductOther,
}

// ParseProductType maps a free-form label ("Single Malt", "single-malt") to
// a ProductType. Unknown labels map to ProductOther.
func ParseProductType(s string) ProductType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if pt, ok := productTypes[key]; ok {
		return pt
	}
	return ProductOther
}

// Valid reports whether p is one of the known product types.
func (p ProductType) Valid() bool {
	_, ok := productTypes[string(p)]
	return ok
}

// UnmarshalText lets JSON and YAML producers send loose labels.
func (p *ProductType) UnmarshalText(text []byte) error {
	*p = ParseProductType(string(text))
	return nil
}

// SourceType tags the stage that produced an availability fact.
type SourceType string

// Provenance tags.
const (
	SourceTextScrape    SourceType = "text-scrape"
	SourceVision        SourceType = "vision"
	SourceReviewMention SourceType = "review-mention"
	SourceManual        SourceType = "manual"
)

// Valid reports whether s is a known provenance tag.
func (s SourceType) Valid() bool {
	switch s {
	case SourceTextScrape, SourceVision, SourceReviewMention, SourceManual:
		return true
	}
	return false
}

// RawExtractedEntry is one spirit listing as emitted by an extraction
// producer. It is never mutated after decoding.
type RawExtractedEntry struct {
	Name        string       `json:"name" yaml:"name" validate:"required,nonblank,max=300"`
	Distillery  *string      `json:"distillery,omitempty" yaml:"distillery,omitempty" validate:"omitempty,max=200"`
	ProductType *ProductType `json:"product_type,omitempty" yaml:"product_type,omitempty" validate:"omitempty,oneof=bourbon scotch irish rye japanese canadian single_malt blended other"`
	Age         *int         `json:"age,omitempty" yaml:"age,omitempty" validate:"omitempty,min=0,max=100"`
	ABV         *float64     `json:"abv,omitempty" yaml:"abv,omitempty" validate:"omitempty,gt=0,lte=100"`
	Price       *float64     `json:"price,omitempty" yaml:"price,omitempty" validate:"omitempty,gte=0"`
	PourSize    *string      `json:"pour_size,omitempty" yaml:"pour_size,omitempty" validate:"omitempty,max=50"`
	Notes       *string      `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Validate checks the entry's shape at the producer boundary.
func (e RawExtractedEntry) Validate() error {
	return Validate(e)
}

// CanonicalWhiskey is a catalog entity. At most one exists per CanonicalKey.
type CanonicalWhiskey struct {
	ID           string      `json:"id"`
	DisplayName  string      `json:"display_name"`
	CanonicalKey string      `json:"canonical_key"`
	Distillery   *string     `json:"distillery,omitempty"`
	ProductType  ProductType `json:"product_type"`
	Age          *int        `json:"age,omitempty"`
	ABV          *float64    `json:"abv,omitempty"`
	Description  *string     `json:"description,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// WhiskeyDraft is a catalog entity that has not been stored yet.
type WhiskeyDraft struct {
	DisplayName  string      `json:"display_name"`
	CanonicalKey string      `json:"canonical_key"`
	Distillery   *string     `json:"distillery,omitempty"`
	ProductType  ProductType `json:"product_type"`
	Age          *int        `json:"age,omitempty"`
	ABV          *float64    `json:"abv,omitempty"`
	Description  *string     `json:"description,omitempty"`
}

// WhiskeyPatch holds values for catalog fields that are currently null.
// A nil field is left alone.
type WhiskeyPatch struct {
	Distillery  *string
	ProductType *ProductType
	Age         *int
	ABV         *float64
}

// Empty reports whether the patch would change nothing.
func (p WhiskeyPatch) Empty() bool {
	return p.Distillery == nil && p.ProductType == nil && p.Age == nil && p.ABV == nil
}

// MissingFrom returns the fields of w that are null (or ProductOther) and
// that e can supply. Values already present on w are never overwritten.
func (w CanonicalWhiskey) MissingFrom(e RawExtractedEntry) WhiskeyPatch {
	var p WhiskeyPatch
	if w.Distillery == nil && nonBlank(e.Distillery) {
		p.Distillery = e.Distillery
	}
	if (w.ProductType == "" || w.ProductType == ProductOther) && e.ProductType != nil && *e.ProductType != ProductOther && e.ProductType.Valid() {
		p.ProductType = e.ProductType
	}
	if w.Age == nil && e.Age != nil {
		p.Age = e.Age
	}
	if w.ABV == nil && e.ABV != nil {
		p.ABV = e.ABV
	}
	return p
}

// BarAvailabilityFact records that a bar pours a catalog whiskey. There is
// one fact per (BarID, WhiskeyID).
type BarAvailabilityFact struct {
	BarID      string     `json:"bar_id"`
	WhiskeyID  string     `json:"whiskey_id"`
	Price      *float64   `json:"price,omitempty"`
	PourSize   *string    `json:"pour_size,omitempty"`
	Available  bool       `json:"available"`
	Notes      *string    `json:"notes,omitempty"`
	SourceType SourceType `json:"source_type"`
	Confidence float64    `json:"confidence"`
	IsStale    bool       `json:"is_stale"`
	LastSeenAt time.Time  `json:"last_seen_at"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
