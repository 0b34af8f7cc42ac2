package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvr-ai/intelliroad/images"
)

// ImageFile represents an image file found in a directory.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Format is derived from the extension.
	Format images.ImageFormat
	// Frame is the number in a "frame-N" file name, or -1.
	Frame int
}

// Read returns the raw bytes of the file.
func (f ImageFile) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}

// ListDirectoryImageFiles finds the decodable images in a directory.
//
// Files named "frame-N.<ext>" are ordered by N; everything else follows by name.
// Subdirectories and unknown extensions are skipped.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The images in processing order.
// - error: Error if the directory cannot be read.
func ListDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, ok := images.FormatFromPath(entry.Name())
		if !ok {
			continue
		}
		files = append(files, ImageFile{
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
			Frame:  frameNumber(entry.Name()),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if (a.Frame >= 0) != (b.Frame >= 0) {
			return a.Frame >= 0
		}
		if a.Frame != b.Frame {
			return a.Frame < b.Frame
		}
		return a.Path < b.Path
	})
	return files, nil
}

func frameNumber(name string) int {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	digits, ok := strings.CutPrefix(base, "frame-")
	if !ok {
		return -1
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
