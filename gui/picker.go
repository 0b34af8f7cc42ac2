package gui

import (
	"errors"

	"github.com/sqweek/dialog"
)

// FilePicker asks the user for a file. An empty path with a nil error means the
// user cancelled.
type FilePicker interface {
	PickImage() (string, error)
	PickVideo() (string, error)
}

// DialogPicker uses the native open-file dialog.
type DialogPicker struct{}

// PickImage implements FilePicker.
func (DialogPicker) PickImage() (string, error) {
	return load(dialog.File().
		Title("Select image to detect").
		Filter("Images", "jpg", "jpeg", "png", "bmp", "webp", "tif", "tiff", "heic", "heif").
		Filter("All files", "*"))
}

// PickVideo implements FilePicker.
func (DialogPicker) PickVideo() (string, error) {
	return load(dialog.File().
		Title("Select video to detect").
		Filter("Videos", "mp4", "avi", "mov", "mkv").
		Filter("All files", "*"))
}

func load(b *dialog.FileBuilder) (string, error) {
	path, err := b.Load()
	if errors.Is(err, dialog.ErrCancelled) {
		return "", nil
	}
	return path, err
}
