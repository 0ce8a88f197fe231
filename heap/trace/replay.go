package trace

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joshuapare/heapkit/heap/alloc"
)

// Allocator is the heap interface a replay drives. *alloc.Heap satisfies it.
type Allocator interface {
	Init() error
	Alloc(n int) (alloc.Ref, []byte, error)
	Free(ref alloc.Ref)
	Realloc(ref alloc.Ref, n int) (alloc.Ref, []byte, error)
	Bytes(ref alloc.Ref) []byte
	Check() []*alloc.ValidationError
	SegmentSize() int
}

var _ Allocator = (*alloc.Heap)(nil)

// Mode selects which evaluations a Runner performs.
type Mode int

const (
	// Correctness replays with payload, placement and heap checks after
	// every request.
	Correctness Mode = 1 << iota

	// Performance replays without checks, timing the run and tracking peak
	// utilization.
	Performance

	// Both runs a correctness pass and, if it succeeds, a timed pass.
	Both = Correctness | Performance
)

// Has reports whether m includes f.
func (m Mode) Has(f Mode) bool {
	return m&f != 0
}

// DefaultTrials is the number of timed runs per script; the fastest counts.
const DefaultTrials = 3

// DefaultTargetThroughput is the Kreq/s a reference malloc reaches on the
// sample scripts. Summaries report throughput relative to it.
const DefaultTargetThroughput = 12000

// Result is the outcome of one script.
type Result struct {
	Name     string
	Requests int

	// Valid is false when the correctness pass failed; Err says why.
	Valid bool
	Err   error

	// Performance figures, zero unless a timed pass ran.
	Elapsed     time.Duration
	Utilization float64 // peak payload / segment size at that point
	PeakPayload int
	PeakSegment int
}

// Throughput returns thousands of requests per second.
func (r Result) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Requests) / r.Elapsed.Seconds() / 1e3
}

// Summary aggregates the results that passed.
type Summary struct {
	Total       int
	Passed      int
	Requests    int
	Elapsed     time.Duration
	Utilization float64 // average over passing scripts
	Throughput  float64 // average Kreq/s over passing scripts
	Target      float64 // Kreq/s that Throughput is compared against
}

// RelativeThroughput returns Throughput as a fraction of Target, or 0 when
// there is no target.
func (s Summary) RelativeThroughput() float64 {
	if s.Target <= 0 {
		return 0
	}
	return s.Throughput / s.Target
}

// Runner replays scripts against one allocator, reinitializing it before
// every pass.
type Runner struct {
	heap   Allocator
	mode   Mode
	trials int
	log    *slog.Logger
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(h Allocator, mode Mode, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if mode == 0 {
		mode = Both
	}
	return &Runner{heap: h, mode: mode, trials: DefaultTrials, log: logger}
}

// SetTrials sets how many timed passes Run makes per script.
func (r *Runner) SetTrials(n int) {
	r.trials = max(n, 1)
}

// Run evaluates one script.
func (r *Runner) Run(s *Script) Result {
	res := Result{Name: s.Name, Requests: len(s.Requests), Valid: true}
	r.log.Debug("replay", "script", s.Name, "requests", len(s.Requests))

	if r.mode.Has(Correctness) {
		if err := r.Verify(s); err != nil {
			r.log.Warn("replay failed", "script", s.Name, "err", err)
			res.Valid = false
			res.Err = err
			return res
		}
	}

	if r.mode.Has(Performance) {
		for i := 0; i < r.trials; i++ {
			m, err := r.measure(s)
			if err != nil {
				res.Valid = false
				res.Err = err
				return res
			}
			if i == 0 || m.Elapsed < res.Elapsed {
				res.Elapsed = m.Elapsed
			}
			res.Utilization = m.Utilization
			res.PeakPayload = m.PeakPayload
			res.PeakSegment = m.PeakSegment
		}
		r.log.Debug("replay timed",
			"script", s.Name,
			"elapsed", res.Elapsed,
			"utilization", res.Utilization,
		)
	}
	return res
}

// RunAll evaluates every script and aggregates the passing ones.
func (r *Runner) RunAll(scripts []*Script) ([]Result, Summary) {
	results := make([]Result, 0, len(scripts))
	for _, s := range scripts {
		results = append(results, r.Run(s))
	}
	return results, Summarize(results)
}

// Summarize aggregates results; failed scripts only count toward Total.
func Summarize(results []Result) Summary {
	sum := Summary{Total: len(results), Target: DefaultTargetThroughput}
	var tput float64
	for _, res := range results {
		if !res.Valid {
			continue
		}
		sum.Passed++
		sum.Requests += res.Requests
		sum.Elapsed += res.Elapsed
		sum.Utilization += res.Utilization
		tput += res.Throughput()
	}
	if sum.Passed > 0 {
		sum.Utilization /= float64(sum.Passed)
		sum.Throughput = tput / float64(sum.Passed)
	}
	return sum
}

type liveBlock struct {
	ref  alloc.Ref
	size int
}

// replay holds the state of one correctness pass.
type replay struct {
	heap   Allocator
	script *Script
	blocks []liveBlock
}

func (p *replay) fail(line int, format string, args ...any) *ReplayError {
	return &ReplayError{Script: p.script.Name, Line: line, Msg: fmt.Sprintf(format, args...)}
}

// Verify replays s once with every check enabled and returns the first
// failure: an allocation error, a misaligned, out-of-segment or overlapping
// block, payload bytes that changed, or a heap that fails validation.
func (r *Runner) Verify(s *Script) error {
	p := &replay{heap: r.heap, script: s, blocks: make([]liveBlock, s.idCount())}

	if err := r.heap.Init(); err != nil {
		return p.fail(0, "init: %v", err)
	}
	if errs := r.heap.Check(); len(errs) > 0 {
		e := p.fail(0, "heap check failed after init")
		e.Violations = errs
		return e
	}

	for _, req := range s.Requests {
		if err := p.step(req); err != nil {
			return err
		}
		if errs := r.heap.Check(); len(errs) > 0 {
			e := p.fail(req.Line, "heap check failed after %s", req.Op)
			e.Violations = errs
			return e
		}
	}

	for id, b := range p.blocks {
		if err := p.verifyPayload(b, id, -1, "at exit"); err != nil {
			return err
		}
	}
	return nil
}

func (p *replay) step(req Request) error {
	id := req.ID
	old := p.blocks[id]

	switch req.Op {
	case OpAlloc:
		ref, payload, err := p.heap.Alloc(req.Size)
		if err != nil && req.Size != 0 {
			return p.fail(req.Line, "alloc(%d): %v", req.Size, err)
		}
		if err := p.verifyBlock(ref, req.Size, req.Line); err != nil {
			return err
		}
		fill(payload, id)
		p.blocks[id] = liveBlock{ref: ref, size: req.Size}

	case OpRealloc:
		if err := p.verifyPayload(old, id, req.Line, "realloc-ing"); err != nil {
			return err
		}
		ref, payload, err := p.heap.Realloc(old.ref, req.Size)
		if err != nil && req.Size != 0 {
			return p.fail(req.Line, "realloc(%d): %v", req.Size, err)
		}
		p.blocks[id] = liveBlock{}
		if err := p.verifyBlock(ref, req.Size, req.Line); err != nil {
			return err
		}
		for i := 0; i < min(old.size, req.Size); i++ {
			if payload[i] != pattern(id) {
				return p.fail(req.Line, "realloc did not preserve the data from old block")
			}
		}
		fill(payload, id)
		p.blocks[id] = liveBlock{ref: ref, size: req.Size}

	case OpFree:
		if err := p.verifyPayload(old, id, req.Line, "freeing"); err != nil {
			return err
		}
		p.blocks[id] = liveBlock{}
		p.heap.Free(old.ref)
	}
	return nil
}

// verifyBlock checks a freshly returned block: aligned, inside the
// committed segment and clear of every other live block.
func (p *replay) verifyBlock(ref alloc.Ref, size, line int) error {
	if uint64(ref)%alloc.Alignment != 0 {
		return p.fail(line, "new block 0x%X not aligned to %d bytes", uint64(ref), alloc.Alignment)
	}
	if ref == alloc.Nil && size == 0 {
		return nil
	}

	lo := uint64(ref)
	hi := lo + uint64(size)
	if ref == alloc.Nil || hi > uint64(p.heap.SegmentSize()) {
		return p.fail(line, "new block [0x%X,0x%X) not within heap segment [0,0x%X)",
			lo, hi, p.heap.SegmentSize())
	}
	for _, b := range p.blocks {
		if b.ref == alloc.Nil || b.size == 0 {
			continue
		}
		olo := uint64(b.ref)
		ohi := olo + uint64(b.size)
		if lo < ohi && olo < hi {
			return p.fail(line, "new block [0x%X,0x%X) overlaps existing block [0x%X,0x%X)",
				lo, hi, olo, ohi)
		}
	}
	return nil
}

func (p *replay) verifyPayload(b liveBlock, id, line int, op string) error {
	if b.size == 0 {
		return nil
	}
	data := p.heap.Bytes(b.ref)[:b.size]
	for _, v := range data {
		if v != pattern(id) {
			return p.fail(line, "invalid payload data detected when %s block 0x%X", op, uint64(b.ref))
		}
	}
	return nil
}

// pattern is the fill byte for block id.
func pattern(id int) byte {
	return byte(id & 0xFF)
}

func fill(b []byte, id int) {
	v := pattern(id)
	for i := range b {
		b[i] = v
	}
}

// measure replays s with no checks, timing the run and tracking the peak
// ratio of live payload bytes to committed segment bytes.
func (r *Runner) measure(s *Script) (Result, error) {
	h := r.heap
	blocks := make([]liveBlock, s.idCount())
	var cur, peak, maxSeg int

	start := time.Now()
	if err := h.Init(); err != nil {
		return Result{}, &ReplayError{Script: s.Name, Msg: fmt.Sprintf("init: %v", err)}
	}

	for _, req := range s.Requests {
		id := req.ID
		switch req.Op {
		case OpAlloc:
			ref, payload, err := h.Alloc(req.Size)
			if err != nil && req.Size != 0 {
				return Result{}, &ReplayError{Script: s.Name, Line: req.Line, Msg: err.Error()}
			}
			blocks[id] = liveBlock{ref: ref, size: req.Size}
			cur += req.Size
			if req.Size > 0 {
				payload[0], payload[req.Size-1] = 0xab, 0xab
			}

		case OpRealloc:
			ref, payload, err := h.Realloc(blocks[id].ref, req.Size)
			if err != nil && req.Size != 0 {
				return Result{}, &ReplayError{Script: s.Name, Line: req.Line, Msg: err.Error()}
			}
			cur += req.Size - blocks[id].size
			blocks[id] = liveBlock{ref: ref, size: req.Size}
			if req.Size > 0 {
				payload[0], payload[req.Size-1] = 0xcd, 0xcd
			}

		case OpFree:
			h.Free(blocks[id].ref)
			cur -= blocks[id].size
			blocks[id] = liveBlock{}
		}

		// The ratio resets whenever either side reaches a new high.
		if seg := h.SegmentSize(); seg > maxSeg || cur > peak {
			maxSeg = seg
			peak = cur
		}
	}
	elapsed := time.Since(start)

	res := Result{Elapsed: elapsed, PeakPayload: peak, PeakSegment: maxSeg}
	if maxSeg > 0 {
		res.Utilization = float64(peak) / float64(maxSeg)
	}
	return res, nil
}
