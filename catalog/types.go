package catalog

// ImageRef is one image slot on a catalog item. It is either an external URL
// (not owned, costs nothing against quota) or an embedded compressed payload
// owned by exactly the item holding it.
type ImageRef struct {
	URL       string `json:"url,omitempty"`
	Data      string `json:"data,omitempty"` // base64 JPEG payload
	MimeType  string `json:"mimeType,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	SizeBytes int    `json:"sizeBytes,omitempty"`
	// WithinBudget records whether the compression loop managed to honor the
	// per-image byte budget before hitting the quality floor.
	WithinBudget bool `json:"withinBudget,omitempty"`
}

// External reports whether the ref points at a URL instead of an owned payload.
func (r ImageRef) External() bool {
	return r.URL != "" && r.Data == ""
}

// Item is one sellable unit. The image sequence is ordered: the first image is
// the cover image, and order survives every mutation except explicit reorders.
type Item struct {
	ID          string     `json:"id"`
	Brand       string     `json:"brand"`
	Model       string     `json:"model"`
	Year        int        `json:"year"`
	Price       float64    `json:"price"`
	Category    string     `json:"category"`
	Condition   string     `json:"condition"`
	Mileage     int        `json:"mileage"`
	Description string     `json:"description"`
	Features    []string   `json:"features,omitempty"`
	Images      []ImageRef `json:"images"`
	Featured    bool       `json:"featured"`
}

// Draft carries the admin-supplied fields for a new item. Raw image files
// travel separately so the repository controls compression and admission.
type Draft struct {
	Brand       string
	Model       string
	Year        int
	Price       float64
	Category    string
	Condition   string
	Mileage     int
	Description string
	Features    []string
	Featured    bool
}

// Patch holds optional field updates for an existing item. Nil pointers leave
// the field untouched.
type Patch struct {
	Brand       *string
	Model       *string
	Year        *int
	Price       *float64
	Category    *string
	Condition   *string
	Mileage     *int
	Description *string
	Features    *[]string
	Featured    *bool
}

func (p Patch) apply(it *Item) {
	if p.Brand != nil {
		it.Brand = *p.Brand
	}
	if p.Model != nil {
		it.Model = *p.Model
	}
	if p.Year != nil {
		it.Year = *p.Year
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Category != nil {
		it.Category = *p.Category
	}
	if p.Condition != nil {
		it.Condition = *p.Condition
	}
	if p.Mileage != nil {
		it.Mileage = *p.Mileage
	}
	if p.Features != nil {
		it.Features = append([]string(nil), (*p.Features)...)
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Featured != nil {
		it.Featured = *p.Featured
	}
}

// Filter narrows and orders the result of Items. Zero values mean "no
// constraint"; ordering defaults to insertion order.
type Filter struct {
	Brand     string
	Category  string
	Condition string
	MinPrice  float64
	MaxPrice  float64
	Featured  bool // when true, only featured items

	SortBy    string // "price", "year", "mileage", "brand"
	SortOrder string // "asc" (default) or "desc"
}

// StorageInfo is the quota status exposed to the view layer.
type StorageInfo struct {
	UsedBytes     int64 `json:"usedBytes"`
	CapacityBytes int64 `json:"capacityBytes"`
}

// Outcome is the terminal state of a mutating call.
type Outcome int

const (
	// Committed is the normal terminal state: full write succeeded.
	Committed Outcome = iota
	// DegradedCommitted means the write only succeeded after the mutation's
	// image payload was dropped; the textual record survived.
	DegradedCommitted
)

func (o Outcome) String() string {
	if o == DegradedCommitted {
		return "degraded"
	}
	return "committed"
}
