package images

import (
	"path/filepath"
	"strings"
)

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatBMP is the BMP image format (decode only).
	FormatBMP ImageFormat = "bmp"
	// FormatTIFF is the TIFF image format (decode only).
	FormatTIFF ImageFormat = "tiff"
	// FormatHEIC is the HEIC/HEIF image format (decode only).
	FormatHEIC ImageFormat = "heic"
)

var extensions = map[string]ImageFormat{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
	".bmp":  FormatBMP,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".heic": FormatHEIC,
	".heif": FormatHEIC,
}

// FormatFromPath maps a file extension (case-insensitive) to an ImageFormat.
//
// Returns:
//   - ImageFormat: The matched format.
//   - bool: False if the extension is not a known image extension.
func FormatFromPath(path string) (ImageFormat, bool) {
	f, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// IsHEIF reports whether the path names a HEIC/HEIF file.
func IsHEIF(path string) bool {
	f, ok := FormatFromPath(path)
	return ok && f == FormatHEIC
}

// CanEncode reports whether Encode supports the format.
func (f ImageFormat) CanEncode() bool {
	return f == FormatPNG || f == FormatJPEG || f == FormatWebP
}
