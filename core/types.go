package core

import "time"

// Availability classifies inventory. Surplus marks discounted near-expiry
// stock (the anti-waste segment), normal everything else.
type Availability string

const (
	AvailabilitySurplus Availability = "surplus"
	AvailabilityNormal  Availability = "normal"
)

// Role is the closed set of account roles known to the backend.
type Role string

const (
	RoleConsumer Role = "consumer"
	RoleProducer Role = "producer"
	RoleAdmin    Role = "admin"
)

// ParseRole maps a backend role string onto the closed Role set.
// Unknown values fall back to RoleConsumer so a new backend role
// never grants elevated access by accident.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleConsumer, RoleProducer, RoleAdmin:
		return Role(s)
	default:
		return RoleConsumer
	}
}

// ProductImage is a catalogue image with its primary flag.
type ProductImage struct {
	URL       string
	IsPrimary bool
}

// Product is the read-side catalogue item. Prices are carried both in
// minor units (cents) as the backend reports them and as the derived
// display price in currency units.
type Product struct {
	ID           int
	Slug         string
	Name         string
	Price        float64
	Region       string
	Category     string
	Availability Availability
	CO2Saved     float64 // kilograms saved per unit
	DLCDays      int     // days until the best-before date, never negative
	Unit         string
	Image        string
	Description  string
	Images       []ProductImage
	Origin       string
	Stock        *int
	Status       string
	IsPublished  bool
	ImpactCO2G   *int
	PriceCents   int
	PromoCents   *int
}

// CartItem is a product snapshot plus a quantity. Quantity is always >= 1
// for a stored item; dropping to zero removes the entry.
type CartItem struct {
	Product
	Quantity int
}

// CartTotals are the derived cart aggregates.
type CartTotals struct {
	TotalPrice float64
	TotalCO2   float64
}

// ComputeCartTotals derives totals from local cart state. Server-reported
// totals take precedence once a sync round-trip completes.
func ComputeCartTotals(items []CartItem) CartTotals {
	var totals CartTotals
	for _, item := range items {
		totals.TotalPrice += item.Price * float64(item.Quantity)
		totals.TotalCO2 += item.CO2Saved * float64(item.Quantity)
	}
	return totals
}

// CartLineInput is the full-replace payload sent to the remote cart.
type CartLineInput struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// OrderLine is a persisted order line as the backend reports it.
type OrderLine struct {
	ID                  int
	ProductID           *int
	ProductTitle        string
	Quantity            int
	UnitPriceCents      int
	ReferencePriceCents *int
	SubtotalCents       int
	ImpactCO2G          *int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Order is a persisted order. Status transitions happen server-side
// (webhooks from the payment provider); clients only create and read.
type Order struct {
	ID               int
	Status           string
	Currency         string
	TotalAmountCents int
	TotalItems       int
	TotalImpactCO2G  int
	PaymentReference string
	PaymentProvider  string
	IdempotencyKey   string
	PlacedAt         *time.Time
	Notes            string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Lines            []OrderLine
}

// User is the profile derived from the access token via /auth/me.
// It is held in memory only and re-fetched after a restart.
type User struct {
	ID                int
	Email             string
	Role              Role
	FirstName         string
	LastName          string
	Region            string
	IsActive          bool
	EmailVerifiedAt   *time.Time
	LastLoginAt       *time.Time
	ConsentNewsletter bool
	ConsentAnalytics  bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CatalogueSort is the closed set of server-side sort orders.
type CatalogueSort string

const (
	SortNewest    CatalogueSort = "newest"
	SortPriceAsc  CatalogueSort = "price_asc"
	SortPriceDesc CatalogueSort = "price_desc"
	SortDLCAsc    CatalogueSort = "dlc_asc"
)

// CatalogueFilters is a pure value object driving the product query.
// Availability is the one facet the backend cannot filter server-side;
// the catalogue reader applies it as a client-side post-filter.
type CatalogueFilters struct {
	Category     string
	Region       string
	Availability Availability
	Query        string
	PriceMin     *float64
	PriceMax     *float64
	DLCMaxDays   *int
	Sort         CatalogueSort
}

// DashboardMetrics are the in-memory counters advanced on the
// confirmed-checkout fallback path.
type DashboardMetrics struct {
	Orders  int
	CO2     float64
	Savings float64
}

// Tokens is the access/refresh token pair issued by the backend.
// Both fields must be present for the pair to be considered stored.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Valid reports whether both halves of the pair are present.
func (t Tokens) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}
