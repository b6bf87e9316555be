package urls

import (
	"path"
	"strings"
)

var skippedExtensions = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".ico": true, ".pdf": true, ".zip": true, ".exe": true, ".dmg": true,
	".mp3": true, ".mp4": true, ".woff": true, ".woff2": true,
}

// Crawlable reports whether the identity is worth fetching as a page. Assets
// and unparsable identities are still pooled and reported, just not fetched.
func Crawlable(id Identity) bool {
	if !id.Parsable {
		return false
	}
	ext := strings.ToLower(path.Ext(id.Normalized.Path))
	return !skippedExtensions[ext]
}
