package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapURL(t *testing.T) {
	c := Coordinate{Latitude: 40, Longitude: -74}

	google, err := MapURL(GoogleMaps, c)
	require.NoError(t, err)
	assert.Equal(t, "https://www.google.com/maps?q=40.0,-74.0", google)

	apple, err := MapURL(AppleMaps, Coordinate{Latitude: 51.5007, Longitude: -0.1246})
	require.NoError(t, err)
	assert.Equal(t, "https://maps.apple.com/?q=51.5007,-0.1246", apple)

	_, err = MapURL("bing", c)
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	var opened []string
	saved := openURL
	openURL = func(u string) error {
		opened = append(opened, u)
		return nil
	}
	t.Cleanup(func() { openURL = saved })

	require.NoError(t, Open(AppleMaps, Coordinate{Latitude: 1.5, Longitude: 2}))
	assert.Equal(t, []string{"https://maps.apple.com/?q=1.5,2.0"}, opened)

	openURL = func(string) error { return errors.New("no browser") }
	assert.Error(t, Open(GoogleMaps, Coordinate{}))
}
