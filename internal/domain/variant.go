package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// Variant identifies one encoded rendition of a track
type Variant struct {
	Index            int    `json:"index"`
	BitrateLabel     string `json:"bitrate"`
	SourceLocator    string `json:"source"`
	Container        string `json:"container"`
	DeclaredByteSize int64  `json:"declared_byte_size"` // UnknownSize until response headers arrive
}

// UnknownSize marks a variant whose byte size has not been declared
const UnknownSize int64 = -1

// SizeKnown reports whether the declared size has been resolved
func (v Variant) SizeKnown() bool {
	return v.DeclaredByteSize >= 0
}

// String returns a short description used in logs and errors
func (v Variant) String() string {
	return fmt.Sprintf("%s kbit/s (%s)", v.BitrateLabel, v.SourceLocator)
}

// BuildVariants creates the ordered variant list for one folder.
// The order of bitrates is kept: positional identity drives the switch index.
func BuildVariants(baseURL, folder, container string, bitrates []string) ([]Variant, error) {
	if folder == "" {
		return nil, fmt.Errorf("folder name is empty")
	}
	if len(bitrates) == 0 {
		return nil, fmt.Errorf("no bitrates configured")
	}
	if container == "" {
		return nil, fmt.Errorf("container not configured")
	}

	base := strings.TrimRight(baseURL, "/")
	seen := make(map[string]bool, len(bitrates))
	variants := make([]Variant, 0, len(bitrates))
	for i, bitrate := range bitrates {
		bitrate = strings.TrimSpace(bitrate)
		if bitrate == "" {
			return nil, fmt.Errorf("empty bitrate label at position %d", i)
		}
		if seen[bitrate] {
			return nil, fmt.Errorf("duplicate bitrate label: %s", bitrate)
		}
		seen[bitrate] = true

		variants = append(variants, Variant{
			Index:            i,
			BitrateLabel:     bitrate,
			SourceLocator:    fmt.Sprintf("%s/%s/%s.%s", base, url.PathEscape(folder), url.PathEscape(bitrate), container),
			Container:        container,
			DeclaredByteSize: UnknownSize,
		})
	}
	return variants, nil
}
