package entity

import (
	"fmt"
	"net/url"
)

// maxURLLength defines the maximum allowed length for configured URLs.
const maxURLLength = 2048

// ValidateURL checks that rawURL is a well-formed absolute http(s) URL.
// Catalog URLs are configured with a trailing query or id prefix, so the
// query string is allowed and left untouched.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "url", Message: "URL is required"}
	}

	if len(rawURL) > maxURLLength {
		return &ValidationError{
			Field:   "url",
			Message: fmt.Sprintf("url must not exceed %d characters", maxURLLength),
		}
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return &ValidationError{Field: "url", Message: "URL must use http or https scheme"}
	}

	if parsedURL.Host == "" {
		return &ValidationError{Field: "url", Message: "URL must have a host"}
	}

	return nil
}

// Validate checks the invariants of a parsed item record.
func (i *Item) Validate() error {
	if i.ID <= 0 {
		return &ValidationError{Field: "id", Message: "must be positive"}
	}
	if i.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if i.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	return nil
}
