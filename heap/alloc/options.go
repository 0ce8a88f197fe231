package alloc

import (
	"io"
	"log/slog"
	"os"

	"github.com/joshuapare/heapkit/internal/segment"
)

// Runtime debug flag for allocation logging - controlled by HEAPKIT_LOG_ALLOC env var.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Options configures a Heap.
type Options struct {
	// MaxSegmentSize is the size of the reserved address range, the hard
	// upper bound on heap growth.
	// Default: 8 GiB
	MaxSegmentSize int

	// ReallocFactor sizes the new block when Realloc has to move, leaving
	// headroom for further growth. Values <= 1 disable the headroom.
	// Default: 1.5
	ReallocFactor float64

	// GrowthDivisor controls how many extra pages growth requests beyond the
	// immediate need: committedPages/GrowthDivisor. A negative value disables
	// the extra.
	// Default: 10
	GrowthDivisor int

	// Logger receives debug events (growth, allocation failures) and
	// validation failures. When nil, logs are discarded unless
	// HEAPKIT_LOG_ALLOC is set, which logs to stderr.
	Logger *slog.Logger
}

// DefaultOptions returns the recommended options for a general-purpose heap.
func DefaultOptions() *Options {
	return &Options{
		MaxSegmentSize: segment.DefaultMaxSize,
		ReallocFactor:  1.5,
		GrowthDivisor:  10,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o *Options) withDefaults() Options {
	out := *DefaultOptions()
	if o == nil {
		out.Logger = defaultLogger()
		return out
	}
	if o.MaxSegmentSize > 0 {
		out.MaxSegmentSize = o.MaxSegmentSize
	}
	if o.ReallocFactor != 0 {
		out.ReallocFactor = o.ReallocFactor
	}
	if o.GrowthDivisor != 0 {
		out.GrowthDivisor = o.GrowthDivisor
	}
	out.Logger = o.Logger
	if out.Logger == nil {
		out.Logger = defaultLogger()
	}
	return out
}

func defaultLogger() *slog.Logger {
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
