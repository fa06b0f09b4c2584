// Package entity defines the core domain types shared by the scraper, the change
// detector and the announcement pipeline: catalog item identifiers, the parsed
// item record, the outbound announcement, and the typed error taxonomy.
package entity

import "strconv"

// ItemID identifies a published catalog item. It is opaque beyond equality
// and ordering.
type ItemID int64

// String returns the decimal form used in detail page URLs.
func (id ItemID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseItemID parses a decimal identifier as found in listing markup.
func ParseItemID(s string) (ItemID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, &ValidationError{Field: "item_id", Message: "must be positive"}
	}
	return ItemID(v), nil
}

// Author is one creator of an item together with their profile link.
type Author struct {
	Name       string
	ProfileURL string
}

// Category is the primary tag of an item. URL links back to the catalog
// listing filtered by that tag.
type Category struct {
	Name string
	URL  string
}

// Item is the structured record parsed from a detail page.
//
// Free text (Title, Description, author names, category name, tags) is stored
// markdown-escaped, and Description is already truncated to the configured
// limit. An Item is built once and never modified afterwards.
type Item struct {
	ID          ItemID
	URL         string
	Title       string
	Description string
	Category    *Category
	Authors     []Author
	Tags        []string
	ImageURL    string
}

// HasImage reports whether the item carries a preview image.
func (i *Item) HasImage() bool {
	return i.ImageURL != ""
}
