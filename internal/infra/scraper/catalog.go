package scraper

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/resilience/circuitbreaker"

	"github.com/PuerkitoBio/goquery"
)

const (
	listingContainerSelector = ".workshopBrowseItems"
	listingEntrySelector     = "a[data-publishedfileid]"
	listingIDAttr            = "data-publishedfileid"
)

// CatalogScraper reads the first page of the catalog listing.
type CatalogScraper struct {
	pages      *pageFetcher
	listingURL string
	filter     string
}

// NewCatalogScraper creates a CatalogScraper. filter is an opaque query
// fragment appended verbatim to listingURL on every fetch.
// cb may be nil, in which case a dedicated breaker is created.
func NewCatalogScraper(client *http.Client, cb *circuitbreaker.CircuitBreaker, listingURL, filter string) *CatalogScraper {
	return &CatalogScraper{
		pages:      newPageFetcher(client, cb),
		listingURL: listingURL,
		filter:     filter,
	}
}

// URL returns the listing address that Fetch requests.
func (s *CatalogScraper) URL() string {
	return s.listingURL + s.filter
}

// Fetch returns the item identifiers on the listing page in page order.
// Duplicates are kept. A page with the listing container but no entries
// yields an empty slice; a page with neither is a *entity.ParseError.
func (s *CatalogScraper) Fetch(ctx context.Context) ([]entity.ItemID, error) {
	pageURL := s.URL()

	doc, err := s.pages.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	return parseListing(doc, pageURL)
}

func parseListing(doc *goquery.Document, pageURL string) ([]entity.ItemID, error) {
	entries := doc.Find(listingEntrySelector)
	if entries.Length() == 0 && doc.Find(listingContainerSelector).Length() == 0 {
		return nil, &entity.ParseError{
			URL:     pageURL,
			Field:   "listing",
			Message: "no listing container or item entries found",
		}
	}

	ids := make([]entity.ItemID, 0, entries.Length())
	entries.Each(func(i int, sel *goquery.Selection) {
		raw, _ := sel.Attr(listingIDAttr)
		id, err := entity.ParseItemID(strings.TrimSpace(raw))
		if err != nil {
			slog.Warn("skipping listing entry with invalid id",
				slog.Int("index", i),
				slog.String("raw_id", raw),
				slog.Any("error", err))
			return
		}
		ids = append(ids, id)
	})

	return ids, nil
}
