package utils

import (
	"errors"
	"path/filepath"
	"strings"
)

var ErrUnsupportedAsset = errors.New("unsupported template file type")

// AssetContentType maps an uploaded template's extension to its MIME type.
// An empty extension is treated as ".png".
func AssetContentType(filename string) (ext, contentType string, err error) {
	ext = strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".png"
	}
	switch ext {
	case ".png":
		return ext, "image/png", nil
	case ".jpg", ".jpeg":
		return ext, "image/jpeg", nil
	case ".svg":
		return ext, "image/svg+xml", nil
	case ".pdf":
		return ext, "application/pdf", nil
	case ".html", ".htm":
		return ext, "text/html; charset=utf-8", nil
	default:
		return "", "", ErrUnsupportedAsset
	}
}
