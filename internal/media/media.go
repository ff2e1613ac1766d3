// Package media derives names and content types for local media files.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// EncodedSuffix is appended to the base name of encoded downloads.
const EncodedSuffix = "_encoded"

// imageTypes maps lower-case extensions (without dot) to MIME types.
var imageTypes = map[string]string{
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"webp": "image/webp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"heic": "image/heic",
}

// Split returns the base name of path without its extension, and the
// extension without the leading dot. "a/b/photo.final.png" yields
// ("photo.final", "png").
func Split(path string) (name, ext string) {
	base := filepath.Base(path)
	e := filepath.Ext(base)
	name = strings.TrimSuffix(base, e)
	if name == "" {
		// Dotfiles such as ".png" have no extension, only a name.
		return base, ""
	}
	return name, strings.TrimPrefix(e, ".")
}

// EncodedName returns "<name>_encoded.<ext>" for the file at path.
func EncodedName(path string) string {
	name, ext := Split(path)
	if ext == "" {
		return name + EncodedSuffix
	}
	return name + EncodedSuffix + "." + ext
}

// EncodedPath joins dir and EncodedName(path). An empty dir means the
// working directory.
func EncodedPath(dir, path string) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, EncodedName(path))
}

// ContentType returns the MIME type for path's extension. Known image
// extensions map to their canonical type; unknown ones become
// "image/<ext>".
func ContentType(path string) (string, error) {
	_, ext := Split(path)
	if ext == "" {
		return "", fmt.Errorf("cannot determine content type of %s: no file extension", filepath.Base(path))
	}
	ext = strings.ToLower(ext)
	if ct, ok := imageTypes[ext]; ok {
		return ct, nil
	}
	return "image/" + ext, nil
}

// IsImage reports whether path has a well-known image extension.
func IsImage(path string) bool {
	_, ext := Split(path)
	_, ok := imageTypes[strings.ToLower(ext)]
	return ok
}

// SHA256 calculates the hex-encoded SHA-256 checksum of a file.
func SHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
