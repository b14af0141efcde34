package identity

import "fmt"

// Direction names the side of the table a lookup started from.
type Direction string

const (
	GitToCanvas Direction = "git->canvas"
	CanvasToGit Direction = "canvas->git"
)

// LoadError reports a mapping file that is missing, malformed or ambiguous.
type LoadError struct {
	Path string
	Line int // 0 when the error is not tied to a row
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("loading identity map %s: line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("loading identity map %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LookupError reports an identity absent from the table.
type LookupError struct {
	ID        string
	Direction Direction
	Path      string
}

func (e *LookupError) Error() string {
	from := "git"
	if e.Direction == CanvasToGit {
		from = "canvas"
	}
	return fmt.Sprintf("no mapping for %s id %q in %s", from, e.ID, e.Path)
}
