package inference

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ClassSet names a built-in list of class names.
type ClassSet string

const (
	// ClassSetRoadDefect is the road surface damage model.
	ClassSetRoadDefect ClassSet = "road-defect"
	// ClassSetFireSmoke is the fire and smoke model.
	ClassSetFireSmoke ClassSet = "fire-smoke"
)

var classSets = map[ClassSet][]string{
	ClassSetRoadDefect: {"cracks", "pothole"},
	ClassSetFireSmoke:  {"Fire", "Smoke"},
}

// Classes returns a copy of the class names of a built-in set.
func (s ClassSet) Classes() ([]string, error) {
	names, ok := classSets[s]
	if !ok {
		return nil, fmt.Errorf("unknown class set %q", s)
	}
	return append([]string(nil), names...), nil
}

// LoadClassFile reads class names, one per line. Blank lines and lines
// starting with # are skipped.
//
// Arguments:
//   - path: The class file.
//
// Returns:
//   - []string: The class names in file order.
//   - error: An error if the file cannot be read or has no classes.
func LoadClassFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class file: %w", err)
	}
	defer f.Close()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class file: %w", err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("class file %s has no classes", path)
	}
	return names, nil
}

// ClassName returns classes[id], or a placeholder for an out-of-range id.
func ClassName(classes []string, id int) string {
	if id >= 0 && id < len(classes) {
		return classes[id]
	}
	return fmt.Sprintf("unknown_%d", id)
}
