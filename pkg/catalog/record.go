// Package catalog defines the campground domain record and the parsing of
// raw catalog API items into validated records.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Record is one campground entry from the catalog API.
// Pointer fields are optional: nil means the API did not report a value,
// which is observably different from a zero value (prices in particular).
type Record struct {
	ID                     string
	Type                   string
	SelfLink               string
	Name                   string
	Latitude               float64
	Longitude              float64
	RegionName             string
	AdministrativeArea     *string
	NearestCityName        *string
	AccommodationTypeNames []string
	Bookable               bool
	CamperTypes            []string
	Operator               *string
	PhotoURL               *string
	PhotoURLs              []string
	PhotosCount            int
	Rating                 *float64
	ReviewsCount           int
	Slug                   *string
	PriceLow               *float64
	PriceHigh              *float64
	AvailabilityUpdatedAt  *time.Time
}

// rawItem mirrors one JSON:API item from the search response.
type rawItem struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Links struct {
		Self string `json:"self"`
	} `json:"links"`
	Attributes struct {
		Name                   string          `json:"name"`
		Latitude               *float64        `json:"latitude"`
		Longitude              *float64        `json:"longitude"`
		RegionName             string          `json:"region-name"`
		AdministrativeArea     *string         `json:"administrative-area"`
		NearestCityName        *string         `json:"nearest-city-name"`
		AccommodationTypeNames []string        `json:"accommodation-type-names"`
		Bookable               bool            `json:"bookable"`
		CamperTypes            []string        `json:"camper-types"`
		Operator               *string         `json:"operator"`
		PhotoURL               *string         `json:"photo-url"`
		PhotoURLs              []string        `json:"photo-urls"`
		PhotosCount            int             `json:"photos-count"`
		Rating                 *float64        `json:"rating"`
		ReviewsCount           int             `json:"reviews-count"`
		Slug                   *string         `json:"slug"`
		PriceLow               json.RawMessage `json:"price-low"`
		PriceHigh              json.RawMessage `json:"price-high"`
		AvailabilityUpdatedAt  *time.Time      `json:"availability-updated-at"`
	} `json:"attributes"`
}

// ParseItem converts one raw catalog item into a validated Record.
// It returns an error when a required field (id, coordinates, self link) is
// missing or malformed, or when a present price cannot be coerced to a
// number. Callers are expected to skip the item and continue with its
// siblings; a bad item never fails the whole page.
func ParseItem(raw json.RawMessage) (*Record, error) {
	var item rawItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}

	if item.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if item.Attributes.Latitude == nil || item.Attributes.Longitude == nil {
		return nil, fmt.Errorf("item %s: missing coordinates", item.ID)
	}
	if item.Links.Self == "" {
		return nil, fmt.Errorf("item %s: missing self link", item.ID)
	}
	if _, err := url.ParseRequestURI(item.Links.Self); err != nil {
		return nil, fmt.Errorf("item %s: malformed self link: %w", item.ID, err)
	}

	priceLow, err := parsePrice(item.Attributes.PriceLow)
	if err != nil {
		return nil, fmt.Errorf("item %s: price-low: %w", item.ID, err)
	}
	priceHigh, err := parsePrice(item.Attributes.PriceHigh)
	if err != nil {
		return nil, fmt.Errorf("item %s: price-high: %w", item.ID, err)
	}

	attrs := item.Attributes
	return &Record{
		ID:                     item.ID,
		Type:                   item.Type,
		SelfLink:               item.Links.Self,
		Name:                   attrs.Name,
		Latitude:               *attrs.Latitude,
		Longitude:              *attrs.Longitude,
		RegionName:             attrs.RegionName,
		AdministrativeArea:     attrs.AdministrativeArea,
		NearestCityName:        attrs.NearestCityName,
		AccommodationTypeNames: attrs.AccommodationTypeNames,
		Bookable:               attrs.Bookable,
		CamperTypes:            attrs.CamperTypes,
		Operator:               attrs.Operator,
		PhotoURL:               attrs.PhotoURL,
		PhotoURLs:              attrs.PhotoURLs,
		PhotosCount:            attrs.PhotosCount,
		Rating:                 attrs.Rating,
		ReviewsCount:           attrs.ReviewsCount,
		Slug:                   attrs.Slug,
		PriceLow:               priceLow,
		PriceHigh:              priceHigh,
		AvailabilityUpdatedAt:  attrs.AvailabilityUpdatedAt,
	}, nil
}

// ParsePage parses every item of a page, skipping invalid ones.
// Returns the valid records and the number of skipped items.
func ParsePage(items []json.RawMessage, logger zerolog.Logger) ([]Record, int) {
	records := make([]Record, 0, len(items))
	skipped := 0

	for _, raw := range items {
		rec, err := ParseItem(raw)
		if err != nil {
			logger.Warn().Err(err).Msg("Skipping invalid catalog item")
			skipped++
			continue
		}
		records = append(records, *rec)
	}

	return records, skipped
}

// parsePrice coerces a raw price value to a float.
// The API reports prices as numbers, numeric strings, empty strings, or
// null. Absent and falsy values (null, "", 0) map to nil, never to 0.0:
// zero is the absent sentinel upstream, not a real price. A present
// non-numeric value is an error.
func parsePrice(raw json.RawMessage) (*float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	s := string(raw)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("malformed price string: %w", err)
		}
		if s == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("non-numeric price %q", s)
		}
		if v == 0 {
			return nil, nil
		}
		return &v, nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("non-numeric price %s", s)
	}
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}
