package catalogue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/greencart/storefront/core"
)

const placeholderImage = "https://images.unsplash.com/photo-1504674900247-0877df9cc836?q=80&w=1200&auto=format&fit=crop"

// Wire types for the product endpoints.

type productImageRead struct {
	URL       string `json:"url"`
	IsPrimary bool   `json:"is_primary"`
}

type productRead struct {
	ID          int                `json:"id"`
	Title       string             `json:"title"`
	Description *string            `json:"description"`
	Category    *string            `json:"category"`
	Region      *string            `json:"region"`
	Origin      *string            `json:"origin"`
	DLCDate     *string            `json:"dlc_date"`
	ImpactCO2G  *int               `json:"impact_co2_g"`
	PriceCents  int                `json:"price_cents"`
	PromoCents  *int               `json:"promo_price_cents"`
	Stock       int                `json:"stock"`
	Status      string             `json:"status"`
	IsPublished bool               `json:"is_published"`
	Images      []productImageRead `json:"images"`
}

type productListResponse struct {
	Items  []productRead `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// mapProduct converts the backend's snake_case product shape onto the
// internal Product. now anchors the days-until-expiry computation.
func mapProduct(p productRead, now time.Time) core.Product {
	images := make([]core.ProductImage, 0, len(p.Images))
	primary := ""
	for _, img := range p.Images {
		images = append(images, core.ProductImage{URL: img.URL, IsPrimary: img.IsPrimary})
		if img.IsPrimary && primary == "" {
			primary = img.URL
		}
	}
	if primary == "" && len(p.Images) > 0 {
		primary = p.Images[0].URL
	}
	if primary == "" {
		primary = placeholderImage
	}

	availability := core.AvailabilitySurplus
	if p.Stock > 0 {
		availability = core.AvailabilityNormal
	}

	stock := p.Stock
	return core.Product{
		ID:           p.ID,
		Slug:         buildSlug(p.ID, p.Title),
		Name:         p.Title,
		Price:        displayPrice(p),
		Region:       orDefault(p.Region, "France"),
		Category:     orDefault(p.Category, "Autres"),
		Availability: availability,
		CO2Saved:     co2Kilograms(p.ImpactCO2G),
		DLCDays:      dlcDays(p.DLCDate, now),
		Unit:         orDefault(p.Origin, "Unite"),
		Image:        primary,
		Description:  orDefault(p.Description, ""),
		Images:       images,
		Origin:       orDefault(p.Origin, ""),
		Stock:        &stock,
		Status:       p.Status,
		IsPublished:  p.IsPublished,
		ImpactCO2G:   p.ImpactCO2G,
		PriceCents:   p.PriceCents,
		PromoCents:   p.PromoCents,
	}
}

// DecodeProduct converts a raw product document from the backend into
// a Product. The producer endpoints return the same wire shape as the
// catalogue ones and share this decode path.
func DecodeProduct(data []byte, now time.Time) (core.Product, error) {
	var p productRead
	if err := json.Unmarshal(data, &p); err != nil {
		return core.Product{}, core.NewStoreError("catalogue.DecodeProduct", "catalogue", err)
	}
	return mapProduct(p, now), nil
}

// displayPrice prefers the promotional price when present. Both are
// minor currency units on the wire.
func displayPrice(p productRead) float64 {
	cents := p.PriceCents
	if p.PromoCents != nil {
		cents = *p.PromoCents
	}
	return float64(cents) / 100
}

// co2Kilograms converts the backend's grams to display kilograms,
// floored at 0.
func co2Kilograms(grams *int) float64 {
	if grams == nil || *grams <= 0 {
		return 0
	}
	return float64(*grams) / 1000
}

// dlcDays computes days until the best-before date, relative to today
// at midnight and floored at 0: expired or same-day items report 0,
// never a negative number.
func dlcDays(dlcDate *string, now time.Time) int {
	if dlcDate == nil || *dlcDate == "" {
		return 0
	}
	dlc, err := parseDLCDate(*dlcDate)
	if err != nil {
		return 0
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	diff := dlc.Sub(midnight)
	days := int(diff / (24 * time.Hour))
	if diff%(24*time.Hour) > 0 {
		days++
	}
	if days < 0 {
		return 0
	}
	return days
}

func parseDLCDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func orDefault(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// buildSlug derives the canonical product slug, "<id>-<title>" in
// lowercase ASCII with hyphens. The numeric prefix is what ProductIDFromSlug
// parses back out.
func buildSlug(id int, title string) string {
	return slugify(fmt.Sprintf("%d-%s", id, title))
}

func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ProductIDFromSlug extracts the numeric id prefix from a catalogue
// slug. Returns 0 when the slug carries no id.
func ProductIDFromSlug(slug string) int {
	head := slug
	if idx := strings.IndexByte(slug, '-'); idx >= 0 {
		head = slug[:idx]
	}
	id := 0
	for _, r := range head {
		if r < '0' || r > '9' {
			return 0
		}
		id = id*10 + int(r-'0')
	}
	return id
}
