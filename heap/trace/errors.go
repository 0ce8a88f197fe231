package trace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joshuapare/heapkit/heap/alloc"
)

var (
	// ErrMalformed indicates a script line that is not a valid request.
	ErrMalformed = errors.New("trace: malformed request")

	// ErrNoScripts indicates that no script files were found.
	ErrNoScripts = errors.New("trace: no scripts found")
)

// ReplayError reports the first correctness failure of a replay.
type ReplayError struct {
	Script string
	Line   int // script line of the failing request, 0 for init, -1 at exit
	Msg    string

	// Violations holds the validator output when the heap check failed.
	Violations []*alloc.ValidationError
}

func (e *ReplayError) Error() string {
	var b strings.Builder
	switch e.Line {
	case 0:
		fmt.Fprintf(&b, "trace: %s (init): %s", e.Script, e.Msg)
	case -1:
		fmt.Fprintf(&b, "trace: %s (at exit): %s", e.Script, e.Msg)
	default:
		fmt.Fprintf(&b, "trace: %s line %d: %s", e.Script, e.Line, e.Msg)
	}
	if n := len(e.Violations); n > 0 {
		fmt.Fprintf(&b, " (%d violations)", n)
	}
	return b.String()
}
