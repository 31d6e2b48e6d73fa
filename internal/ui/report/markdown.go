package report

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"ambiance/internal/shared/util"
)

// ErrMarkerNotFound is returned when a document lacks a usable marker pair.
var ErrMarkerNotFound = errors.New("digest marker not found")

// MarkerPair returns the HTML comments that delimit the named digest block.
func MarkerPair(name string) (start, end string) {
	return "<!-- ambiance:" + name + ":start -->", "<!-- ambiance:" + name + ":end -->"
}

// InjectDigest rewrites filePath with digest placed inside the marker block
// called marker. Surrounding content is preserved.
func InjectDigest(filePath, marker, digest string) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %q: %w", filePath, err)
	}
	next, err := ReplaceBetweenMarkers(string(content), marker, digest)
	if err != nil {
		return fmt.Errorf("inject into %q: %w", filePath, err)
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filePath, []byte(next), info.Mode().Perm())
}

// ReplaceBetweenMarkers swaps the text between one start and one end marker.
// The document's line ending style is kept.
func ReplaceBetweenMarkers(content, marker, replacement string) (string, error) {
	name := strings.TrimSpace(marker)
	if name == "" {
		return "", fmt.Errorf("%w: empty marker name", ErrMarkerNotFound)
	}
	start, end := MarkerPair(name)

	if n, m := strings.Count(content, start), strings.Count(content, end); n != 1 || m != 1 {
		return "", fmt.Errorf("%w: %q needs exactly one start and one end (found %d and %d)", ErrMarkerNotFound, name, n, m)
	}
	open := strings.Index(content, start) + len(start)
	closing := strings.Index(content, end)
	if closing < open {
		return "", fmt.Errorf("%w: %q end marker precedes start", ErrMarkerNotFound, name)
	}

	eol := "\n"
	if strings.Contains(content, "\r\n") {
		eol = "\r\n"
	}
	body := strings.TrimRight(replacement, "\r\n")
	return content[:open] + eol + body + eol + content[closing:], nil
}
