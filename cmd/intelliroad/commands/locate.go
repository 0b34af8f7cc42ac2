package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nvr-ai/intelliroad/config"
	"github.com/nvr-ai/intelliroad/geo"
	"github.com/spf13/cobra"
)

// NewLocateCmd creates the locate command.
func NewLocateCmd(g *GlobalFlags) *cobra.Command {
	var provider string

	cmd := &cobra.Command{
		Use:   "locate [image]",
		Short: "Open the GPS position of a photo in a web map",
		Long: `Read the GPS coordinates from the EXIF metadata of a photo and open them in
Google Maps, Apple Maps or both. Prompts for the image path and the map
service when they are not given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(g, config.Options{}); err != nil {
				return err
			}

			l := &locator{
				in:      bufio.NewReader(cmd.InOrStdin()),
				out:     cmd.OutOrStdout(),
				extract: geo.ExtractFile,
				open:    geo.Open,
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return l.run(path, provider)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "Map service to open: google, apple or both")
	return cmd
}

// locator runs the interactive locate flow.
type locator struct {
	in      *bufio.Reader
	out     io.Writer
	extract func(path string) (geo.Coordinate, bool, error)
	open    func(s geo.MapService, c geo.Coordinate) error
}

func (l *locator) prompt(question string) (string, error) {
	fmt.Fprint(l.out, question)
	line, err := l.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (l *locator) run(path, provider string) error {
	if path == "" {
		var err error
		if path, err = l.prompt("Image path: "); err != nil {
			return err
		}
	}
	path = strings.Trim(strings.TrimSpace(path), `"'`)

	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(l.out, "Image file does not exist")
		return fmt.Errorf("image not found: %s", path)
	}

	coord, ok, err := l.extract(path)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(l.out, "Could not extract GPS information from the image")
		return nil
	}

	fmt.Fprintln(l.out, "\nGPS coordinates:")
	fmt.Fprintf(l.out, "Latitude: %v\n", coord.Latitude)
	fmt.Fprintf(l.out, "Longitude: %v\n", coord.Longitude)

	choice := choiceFor(provider)
	if provider == "" {
		fmt.Fprintln(l.out, "\nSelect a map service:")
		fmt.Fprintln(l.out, "1. Google Maps")
		fmt.Fprintln(l.out, "2. Apple Maps")
		fmt.Fprintln(l.out, "3. Both")
		if choice, err = l.prompt("Choice (1/2/3): "); err != nil {
			return err
		}
	}

	var services []geo.MapService
	switch choice {
	case "1":
		services = []geo.MapService{geo.GoogleMaps}
	case "2":
		services = []geo.MapService{geo.AppleMaps}
	case "3":
		services = []geo.MapService{geo.GoogleMaps, geo.AppleMaps}
	default:
		fmt.Fprintln(l.out, "Invalid choice")
		return nil
	}

	for _, s := range services {
		if err := l.open(s, coord); err != nil {
			return err
		}
		fmt.Fprintf(l.out, "Opened %s at %s\n", s, coord)
	}
	return nil
}

// choiceFor maps --provider values onto the menu numbers.
func choiceFor(provider string) string {
	switch strings.ToLower(provider) {
	case "google", "1":
		return "1"
	case "apple", "2":
		return "2"
	case "both", "3":
		return "3"
	}
	return provider
}
