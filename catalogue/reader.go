// Package catalogue reads the product catalogue, mapping backend
// responses onto internal types and degrading to a bundled static
// product list when the backend is unreachable.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/greencart/storefront/core"
	"github.com/greencart/storefront/gateway"
)

// The backend has no availability facet, so an availability filter
// widens the fetch and re-paginates client-side.
const availabilityFetchLimit = 100

const productCacheTTL = 5 * time.Minute

// ListResult is a catalogue page. Degraded is true when the bundled
// fallback catalogue served the request instead of live data; callers
// must not assume freshness in that case.
type ListResult struct {
	Products []core.Product
	Total    int
	Degraded bool
}

// Reader fetches product listings and single products.
type Reader struct {
	api      *gateway.Client
	cache    core.Memory
	logger   core.Logger
	pageSize int
	now      func() time.Time
}

// ReaderOptions configures a Reader.
type ReaderOptions struct {
	API      *gateway.Client
	Cache    core.Memory // optional product-by-id cache
	Logger   core.Logger
	PageSize int              // defaults to 12
	Now      func() time.Time // injectable clock for DLC computation
}

// NewReader creates a catalogue reader.
func NewReader(opts ReaderOptions) *Reader {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 12
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Reader{
		api:      opts.API,
		cache:    opts.Cache,
		logger:   logger,
		pageSize: pageSize,
		now:      now,
	}
}

// PageSize returns the configured page size.
func (r *Reader) PageSize() int {
	return r.pageSize
}

// List fetches one catalogue page for the given filters. Any fetch or
// parse failure degrades to the bundled fallback catalogue instead of
// propagating: browsing stays available, and Degraded flags the staleness.
func (r *Reader) List(ctx context.Context, filters core.CatalogueFilters, page int) (*ListResult, error) {
	if page < 1 {
		page = 1
	}

	availabilityMode := filters.Availability != ""
	limit := r.pageSize
	offset := (page - 1) * r.pageSize
	if availabilityMode {
		limit = availabilityFetchLimit
		offset = 0
	}

	var resp productListResponse
	err := r.api.Do(ctx, gateway.Request{
		Path:   "/products",
		Params: listParams(filters, limit, offset),
	}, &resp)
	if err != nil {
		r.logger.Warn("Product listing failed, serving fallback catalogue", map[string]interface{}{
			"operation": "catalogue_list",
			"error":     err,
		})
		return r.fallbackResult(filters, page), nil
	}

	now := r.now()
	items := make([]core.Product, 0, len(resp.Items))
	for _, p := range resp.Items {
		items = append(items, mapProduct(p, now))
	}

	result := r.postFilter(items, filters, page, availabilityMode, resp.Total)
	result.Degraded = false
	return result, nil
}

// listParams serializes filters onto the backend query contract.
// Empty values are dropped by the gateway.
func listParams(filters core.CatalogueFilters, limit, offset int) map[string]string {
	params := map[string]string{
		"q":        filters.Query,
		"category": filters.Category,
		"region":   filters.Region,
		"limit":    strconv.Itoa(limit),
		"offset":   strconv.Itoa(offset),
	}
	if filters.DLCMaxDays != nil {
		params["dlc_lte_days"] = strconv.Itoa(*filters.DLCMaxDays)
	}
	if filters.PriceMin != nil {
		params["price_min"] = strconv.FormatFloat(*filters.PriceMin, 'f', -1, 64)
	}
	if filters.PriceMax != nil {
		params["price_max"] = strconv.FormatFloat(*filters.PriceMax, 'f', -1, 64)
	}
	if filters.Sort != "" {
		params["sort"] = string(filters.Sort)
	}
	return params
}

// postFilter applies the client-side availability facet and, when it
// is active, re-paginates the widened fetch locally.
func (r *Reader) postFilter(items []core.Product, filters core.CatalogueFilters, page int, availabilityMode bool, serverTotal int) *ListResult {
	filtered := items
	if filters.Availability != "" {
		filtered = filtered[:0:0]
		for _, item := range items {
			if item.Availability == filters.Availability {
				filtered = append(filtered, item)
			}
		}
	}

	total := serverTotal
	pageItems := filtered
	if availabilityMode {
		total = len(filtered)
		start := (page - 1) * r.pageSize
		if start > len(filtered) {
			start = len(filtered)
		}
		end := start + r.pageSize
		if end > len(filtered) {
			end = len(filtered)
		}
		pageItems = filtered[start:end]
	}

	return &ListResult{
		Products: pageItems,
		Total:    total,
	}
}

func (r *Reader) fallbackResult(filters core.CatalogueFilters, page int) *ListResult {
	result := r.postFilter(FallbackProducts(), filters, page, filters.Availability != "", len(fallbackProducts))
	result.Degraded = true
	return result
}

// GetByID fetches a single product. A confirmed 404 returns (nil, nil);
// any other failure propagates.
func (r *Reader) GetByID(ctx context.Context, id int) (*core.Product, error) {
	cacheKey := fmt.Sprintf("product:%d", id)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			var product core.Product
			if err := json.Unmarshal([]byte(cached), &product); err == nil {
				return &product, nil
			}
		}
	}

	var resp productRead
	err := r.api.Do(ctx, gateway.Request{
		Path: fmt.Sprintf("/products/%d", id),
	}, &resp)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	product := mapProduct(resp, r.now())
	if r.cache != nil {
		if data, err := json.Marshal(product); err == nil {
			if cacheErr := r.cache.Set(ctx, cacheKey, string(data), productCacheTTL); cacheErr != nil {
				r.logger.Debug("Product cache write failed", map[string]interface{}{
					"operation":  "catalogue_cache_set",
					"product_id": id,
					"error":      cacheErr,
				})
			}
		}
	}
	return &product, nil
}

// GetBySlug resolves a product from its "<id>-<title>" slug.
func (r *Reader) GetBySlug(ctx context.Context, slug string) (*core.Product, error) {
	id := ProductIDFromSlug(slug)
	if id == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, id)
}
