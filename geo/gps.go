// Package geo - GPS coordinates from image EXIF metadata and map links.
package geo

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	"github.com/jdeng/goheif"
	"github.com/pkg/errors"
)

// ErrNoGPS is returned by callers that need a position when the image has none.
var ErrNoGPS = errors.New("image has no GPS data")

// EXIF tag names read by FromTags.
const (
	TagLatitude     = "GPSLatitude"
	TagLatitudeRef  = "GPSLatitudeRef"
	TagLongitude    = "GPSLongitude"
	TagLongitudeRef = "GPSLongitudeRef"
)

// Coordinate is a position in decimal degrees. South and west are negative.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String prints "lat,lon" the way map services expect it in a query.
func (c Coordinate) String() string {
	return formatDegrees(c.Latitude) + "," + formatDegrees(c.Longitude)
}

func formatDegrees(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ExtractFile reads GPS coordinates from an image file. HEIC/HEIF containers are
// unpacked first; every other format is searched for an embedded EXIF block.
//
// Arguments:
//   - path: The image file.
//
// Returns:
//   - Coordinate: The position, valid only when the bool is true.
//   - bool: False when the image has no EXIF data or no complete GPS tags.
//   - error: An error if the file cannot be read or the EXIF data is malformed.
func ExtractFile(path string) (Coordinate, bool, error) {
	if isHEIF(path) {
		f, err := os.Open(path)
		if err != nil {
			return Coordinate{}, false, errors.Wrap(err, "open image")
		}
		defer f.Close()

		raw, err := goheif.ExtractExif(f)
		if err != nil || len(raw) == 0 {
			return Coordinate{}, false, nil
		}
		return Extract(raw)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Coordinate{}, false, errors.Wrap(err, "read image")
	}
	return Extract(data)
}

func isHEIF(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".heic", ".heif":
		return true
	}
	return false
}

// Extract reads GPS coordinates from encoded image bytes or a raw EXIF block.
func Extract(data []byte) (Coordinate, bool, error) {
	if len(data) == 0 {
		return Coordinate{}, false, nil
	}

	raw, err := exif.SearchAndExtractExif(data)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return Coordinate{}, false, nil
		}
		return Coordinate{}, false, errors.Wrap(err, "search exif")
	}

	tags, _, err := exif.GetFlatExifData(raw, nil)
	if err != nil {
		return Coordinate{}, false, errors.Wrap(err, "parse exif")
	}

	values := make(map[string]interface{}, len(tags))
	for _, t := range tags {
		values[t.TagName] = t.Value
	}
	return FromTags(values)
}

// FromTags builds a coordinate from decoded EXIF values keyed by tag name.
// All four GPS tags must be present, otherwise the bool is false.
func FromTags(values map[string]interface{}) (Coordinate, bool, error) {
	lat, latOK := values[TagLatitude]
	latRef, latRefOK := values[TagLatitudeRef]
	lon, lonOK := values[TagLongitude]
	lonRef, lonRefOK := values[TagLongitudeRef]
	if !latOK || !latRefOK || !lonOK || !lonRefOK {
		return Coordinate{}, false, nil
	}

	latitude, err := DecimalDegrees(lat, latRef)
	if err != nil {
		return Coordinate{}, false, errors.Wrap(err, "latitude")
	}
	longitude, err := DecimalDegrees(lon, lonRef)
	if err != nil {
		return Coordinate{}, false, errors.Wrap(err, "longitude")
	}
	return Coordinate{Latitude: latitude, Longitude: longitude}, true, nil
}

// DecimalDegrees converts a (degrees, minutes, seconds) rational triple to decimal
// degrees: d + m/60 + s/3600, negated for the S and W references.
//
// Arguments:
//   - dms: A []exifcommon.Rational with at least three elements.
//   - ref: The hemisphere reference, a string such as "N" or "W".
//
// Returns:
//   - float64: The signed decimal value.
//   - error: An error if the value has the wrong type or a zero denominator.
func DecimalDegrees(dms interface{}, ref interface{}) (float64, error) {
	rationals, ok := dms.([]exifcommon.Rational)
	if !ok {
		return 0, fmt.Errorf("unexpected GPS value type %T", dms)
	}
	if len(rationals) < 3 {
		return 0, fmt.Errorf("GPS value has %d components, want 3", len(rationals))
	}

	var parts [3]float64
	for i := 0; i < 3; i++ {
		if rationals[i].Denominator == 0 {
			return 0, fmt.Errorf("GPS component %d has a zero denominator", i)
		}
		parts[i] = float64(rationals[i].Numerator) / float64(rationals[i].Denominator)
	}
	decimal := parts[0] + parts[1]/60 + parts[2]/3600

	r, _ := ref.(string)
	switch strings.ToUpper(strings.Trim(r, " \x00")) {
	case "S", "W":
		decimal = -decimal
	}
	return decimal, nil
}
