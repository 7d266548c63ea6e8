// Package blob stores binary preview images under a sandboxed data
// directory, addressed by note id.
package blob

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Store is the interface for preview blob operations. Locators returned
// by Save are relative to the data directory and safe to persist.
type Store interface {
	// Save writes the preview bytes for a note id and returns its
	// relative locator.
	Save(id string, data []byte) (string, error)
	// Read returns the bytes at a relative locator.
	Read(rel string) ([]byte, error)
	// Remove deletes the blob at a relative locator.
	Remove(rel string) error
	// Previews returns the relative locators of all stored previews.
	Previews() ([]string, error)
}

// DecodeDataURL extracts the payload of a base64 data URL
// (e.g. "data:image/png;base64,...").
func DecodeDataURL(dataURL string) ([]byte, error) {
	comma := strings.IndexByte(dataURL, ',')
	if comma < 0 {
		return nil, fmt.Errorf("blob: malformed data url")
	}
	data, err := base64.StdEncoding.DecodeString(dataURL[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("blob: decode data url: %w", err)
	}
	return data, nil
}
