// internal/env/overlay.go
//
// Optional `.env` overlay loader.
//
// Context
// -------
// Developers keep a local `.env` file next to the binary; production hosts
// inject variables directly.  The overlay is therefore best-effort: a
// missing file is reported as `NotFound` and never fails startup.  A file
// that exists but cannot be parsed is a hard error, since silently skipping
// half a file would start the process with a partial environment.
//
// Variables already present in the process environment win over the file.
//
// Notes
// -----
// • Oxford commas, two spaces after periods.
package env

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
)

// DefaultOverlay is the conventional overlay file name.
const DefaultOverlay = ".env"

// ErrOverlayParse wraps any failure to read or parse an existing overlay.
var ErrOverlayParse = errors.New("env overlay unreadable")

// Outcome reports what LoadOverlay did.
type Outcome int

const (
	Loaded Outcome = iota + 1
	NotFound
)

func (o Outcome) String() string {
	switch o {
	case Loaded:
		return "loaded"
	case NotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// LoadOverlay merges path into the process environment.  An empty path
// means DefaultOverlay.
func LoadOverlay(path string) (Outcome, error) {
	if path == "" {
		path = DefaultOverlay
	}
	err := godotenv.Load(path)
	switch {
	case err == nil:
		return Loaded, nil
	case errors.Is(err, fs.ErrNotExist):
		return NotFound, nil
	default:
		return 0, fmt.Errorf("%w: %s: %v", ErrOverlayParse, path, err)
	}
}
