package pagination

import "strings"

const relNext = `rel="next"`

// ParseNextLink returns the URL of the rel="next" segment of a Link header.
// The relation must match exactly, quotes included. The second return value
// is false when the header is empty or carries no next relation.
func ParseNextLink(header string) (string, bool) {
	if header == "" {
		return "", false
	}

	for _, segment := range strings.Split(header, ",") {
		parts := strings.Split(segment, ";")
		if len(parts) < 2 {
			continue
		}
		urlPart := strings.TrimSpace(parts[0])
		relPart := strings.TrimSpace(parts[1])
		if relPart != relNext {
			continue
		}
		urlPart = strings.TrimPrefix(urlPart, "<")
		urlPart = strings.TrimSuffix(urlPart, ">")
		return urlPart, true
	}

	return "", false
}
