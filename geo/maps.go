package geo

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// MapService is a web map that can show a coordinate.
type MapService string

const (
	GoogleMaps MapService = "google"
	AppleMaps  MapService = "apple"
)

// MapURL returns the link that opens c in the given service.
func MapURL(s MapService, c Coordinate) (string, error) {
	switch s {
	case GoogleMaps:
		return "https://www.google.com/maps?q=" + c.String(), nil
	case AppleMaps:
		return "https://maps.apple.com/?q=" + c.String(), nil
	default:
		return "", fmt.Errorf("unknown map service %q", s)
	}
}

// openURL is swapped out in tests.
var openURL = browser.OpenURL

// Open shows c in the default web browser.
func Open(s MapService, c Coordinate) error {
	url, err := MapURL(s, c)
	if err != nil {
		return err
	}
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	log.Info().Str("service", string(s)).Str("url", url).Msg("🗺️ opened location")
	return nil
}
