package modindex

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidMeta is returned when a meta.json document lacks a required
// field.
var ErrInvalidMeta = errors.New("modindex: invalid meta")

// requiredMetaFields must be present and non-null in every meta.json.
var requiredMetaFields = []string{"categories", "author", "repo", "title", "downloadURL", "version"}

// ModID identifies a mod by its directory name, conventionally
// "<author>@<name>".
type ModID string

// String returns the ID as a string.
func (id ModID) String() string { return string(id) }

// Meta is the content of a mod's meta.json.
type Meta struct {
	RequiresSteamodded    bool     `json:"requires-steamodded"`
	RequiresTalisman      bool     `json:"requires-talisman"`
	Categories            []string `json:"categories"`
	Author                string   `json:"author"`
	Repo                  string   `json:"repo"`
	Title                 string   `json:"title"`
	DownloadURL           string   `json:"downloadURL"`
	FolderName            string   `json:"folderName,omitempty"`
	Version               string   `json:"version"`
	AutomaticVersionCheck bool     `json:"automatic-version-check"`
	// LastUpdated is a Unix timestamp in seconds, nil when the mod has
	// never reported one.
	LastUpdated *int64 `json:"last-updated,omitempty"`
}

// ParseMeta decodes a meta.json document. The categories, author, repo,
// title, downloadURL and version fields are required; the flags default to
// false.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("parse meta: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return Meta{}, fmt.Errorf("parse meta: %w", err)
	}
	for _, name := range requiredMetaFields {
		if raw, ok := fields[name]; !ok || string(raw) == "null" {
			return Meta{}, fmt.Errorf("%w: missing field %q", ErrInvalidMeta, name)
		}
	}
	return m, nil
}

// Updated returns LastUpdated, or 0 when it is unset.
func (m Meta) Updated() int64 {
	if m.LastUpdated == nil {
		return 0
	}
	return *m.LastUpdated
}
