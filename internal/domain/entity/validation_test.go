package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "listing with query", url: "https://steamcommunity.com/workshop/browse/?appid=224260"},
		{name: "detail prefix", url: "https://steamcommunity.com/sharedfiles/filedetails/?id="},
		{name: "plain http", url: "http://localhost:8080/browse"},
		{name: "empty", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/file", wantErr: true},
		{name: "no host", url: "https:///path", wantErr: true},
		{name: "too long", url: "https://example.com/" + strings.Repeat("a", maxURLLength), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestItem_Validate(t *testing.T) {
	valid := Item{ID: 42, URL: "https://example.com/?id=42", Title: "Sky Island"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	missingTitle := valid
	missingTitle.Title = ""
	err := missingTitle.Validate()
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Validate() error = %v, want ErrValidationFailed", err)
	}
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "title" {
		t.Errorf("Validate() field = %v, want title", err)
	}

	badID := valid
	badID.ID = 0
	if err := badID.Validate(); err == nil {
		t.Error("Validate() with zero id error = nil, want error")
	}
}
