package scraper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"workshop-announcer/internal/domain/entity"
	"workshop-announcer/internal/resilience/circuitbreaker"
	"workshop-announcer/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
)

const (
	titleSelector       = ".workshopItemTitle"
	descriptionSelector = ".workshopItemDescription"
	creatorsSelector    = ".creatorsBlock"
	creatorSelector     = `div[class^="friendBlock persona"]`
	creatorNameSelector = ".friendBlockContent"
	tagsSelector        = ".rightDetailsBlock a"
	imageSelector       = "img.workshopItemPreviewImageMain"

	// EllipsisMarker is appended to descriptions that were cut short.
	EllipsisMarker = "..."

	categoryQuery = "&requiredtags%5B%5D="
)

// DetailConfig describes where detail pages live and how descriptions are cut.
type DetailConfig struct {
	// DetailURL is the item page prefix; the decimal id is appended to it.
	DetailURL string

	// ListingURL is the base used to build category links.
	ListingURL string

	// DescriptionLimit is the maximum number of description runes kept
	// before the ellipsis marker.
	DescriptionLimit int
}

// DetailScraper builds an entity.Item from an item detail page.
type DetailScraper struct {
	pages *pageFetcher
	cfg   DetailConfig
}

// NewDetailScraper creates a DetailScraper. cb may be shared with the
// CatalogScraper since both talk to the same site.
func NewDetailScraper(client *http.Client, cb *circuitbreaker.CircuitBreaker, cfg DetailConfig) *DetailScraper {
	return &DetailScraper{
		pages: newPageFetcher(client, cb),
		cfg:   cfg,
	}
}

// ItemURL returns the detail page address for id.
func (s *DetailScraper) ItemURL(id entity.ItemID) string {
	return s.cfg.DetailURL + id.String()
}

// Fetch retrieves and parses the detail page of id.
// It returns a *entity.FetchError when the page cannot be retrieved and a
// *entity.ParseError when the title is missing.
func (s *DetailScraper) Fetch(ctx context.Context, id entity.ItemID) (*entity.Item, error) {
	itemURL := s.ItemURL(id)

	doc, err := s.pages.fetch(ctx, itemURL)
	if err != nil {
		return nil, err
	}

	return s.parseDetail(doc, id, itemURL)
}

func (s *DetailScraper) parseDetail(doc *goquery.Document, id entity.ItemID, itemURL string) (*entity.Item, error) {
	title := strings.TrimSpace(doc.Find(titleSelector).First().Text())
	if title == "" {
		return nil, &entity.ParseError{URL: itemURL, Field: "title", Message: "missing or empty"}
	}

	item := &entity.Item{
		ID:          id,
		URL:         itemURL,
		Title:       text.EscapeMarkdown(title),
		Description: s.description(doc),
		Authors:     parseAuthors(doc),
	}

	tags := parseTags(doc)
	if len(tags) > 0 {
		item.Category = &entity.Category{
			Name: text.EscapeMarkdown(tags[0]),
			URL:  s.cfg.ListingURL + categoryQuery + url.QueryEscape(tags[0]),
		}
		for _, tag := range tags[1:] {
			item.Tags = append(item.Tags, text.EscapeMarkdown(tag))
		}
	}

	if src, ok := doc.Find(imageSelector).First().Attr("src"); ok {
		item.ImageURL = strings.TrimSpace(src)
	}

	return item, nil
}

// description truncates the raw text first so the limit counts visible runes,
// then escapes what was kept.
func (s *DetailScraper) description(doc *goquery.Document) string {
	raw := text.CollapseWhitespace(doc.Find(descriptionSelector).First().Text())
	if raw == "" {
		return ""
	}
	if text.CountRunes(raw) > s.cfg.DescriptionLimit {
		return text.EscapeMarkdown(text.Truncate(raw, s.cfg.DescriptionLimit, "")) + EllipsisMarker
	}
	return text.EscapeMarkdown(raw)
}

// parseAuthors returns creators in page order, unique by name.
func parseAuthors(doc *goquery.Document) []entity.Author {
	var authors []entity.Author
	seen := make(map[string]struct{})

	doc.Find(creatorsSelector).Find(creatorSelector).Each(func(_ int, block *goquery.Selection) {
		name := firstText(block.Find(creatorNameSelector).First())
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}

		profile, _ := block.Find("a[href]").First().Attr("href")
		authors = append(authors, entity.Author{
			Name:       text.EscapeMarkdown(name),
			ProfileURL: strings.TrimSpace(profile),
		})
	})

	return authors
}

func parseTags(doc *goquery.Document) []string {
	var tags []string
	doc.Find(tagsSelector).Each(func(_ int, a *goquery.Selection) {
		if t := strings.TrimSpace(a.Text()); t != "" {
			tags = append(tags, t)
		}
	})
	return tags
}

// firstText returns the first non-blank text node directly under sel.
// The persona block nests status lines after the display name.
func firstText(sel *goquery.Selection) string {
	var out string
	sel.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		if goquery.NodeName(c) != "#text" {
			return true
		}
		if t := strings.TrimSpace(c.Text()); t != "" {
			out = t
			return false
		}
		return true
	})
	return out
}
