// Package contenttype maps website asset filenames to MIME types.
package contenttype

import "strings"

// Default is returned for any extension not in the table.
const Default = "application/octet-stream"

// byExtension covers the asset types a typical website bundle contains.
var byExtension = map[string]string{
	"bmp":  "image/bmp",
	"css":  "text/css",
	"gif":  "image/gif",
	"htm":  "text/html",
	"html": "text/html",
	"ico":  "image/x-icon",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"js":   "application/x-javascript",
	"json": "application/json",
	"png":  "image/png",
	"svg":  "image/svg+xml",
}

// Resolve returns the MIME type for a filename based on its extension,
// matched case-insensitively. Filenames without a dot never match and
// fall through to Default.
func Resolve(filename string) string {
	ext := strings.ToLower(filename[strings.LastIndex(filename, ".")+1:])
	if ct, ok := byExtension[ext]; ok {
		return ct
	}
	return Default
}
