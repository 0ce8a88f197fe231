// Package trace replays allocator request scripts against a heap.
//
// A script is a text file with one request per line:
//
//	a <id> <size>   allocate size bytes and remember the block as id
//	r <id> <size>   resize block id to size bytes
//	f <id>          free block id
//
// Blank lines and lines whose first non-blank character is '#' are skipped.
// Scripts may be UTF-8 or UTF-16 with a byte order mark.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// ScriptExt is the extension of script files picked up from directories.
	ScriptExt = ".script"

	// MaxID is the largest block id a script may use.
	MaxID = 1<<20 - 1

	commentPrefix = "#"
	maxLineSize   = 1 << 16
)

// OpKind is the type of a scripted request.
type OpKind byte

const (
	OpAlloc   OpKind = 'a'
	OpRealloc OpKind = 'r'
	OpFree    OpKind = 'f'
)

func (k OpKind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpRealloc:
		return "realloc"
	case OpFree:
		return "free"
	}
	return fmt.Sprintf("OpKind(%d)", byte(k))
}

// Request is one parsed script line.
type Request struct {
	Op   OpKind
	ID   int
	Size int // zero for OpFree
	Line int // 1-based line number in the script
}

// Script is a parsed request sequence.
type Script struct {
	Name     string // base name without the .script extension
	Requests []Request
	NumIDs   int // highest id + 1
}

// idCount returns the number of id slots the requests need, tolerating
// scripts built by hand with NumIDs unset.
func (s *Script) idCount() int {
	n := s.NumIDs
	for _, r := range s.Requests {
		n = max(n, r.ID+1)
	}
	return n
}

// ParseFile reads and parses the script at path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: open script: %w", err)
	}
	defer f.Close()

	return Parse(f, ScriptName(path))
}

// ScriptName returns the display name of a script path.
func ScriptName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ScriptExt)
}

// Parse reads a script from r. Input starting with a UTF-16 byte order mark
// is transcoded to UTF-8; anything else is read as UTF-8.
func Parse(r io.Reader, name string) (*Script, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	s := &Script{Name: name}
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		req, err := parseRequest(line)
		if err != nil {
			return nil, fmt.Errorf("%w %q at line %d of %s: %w", ErrMalformed, line, lineno, name, err)
		}
		req.Line = lineno
		s.Requests = append(s.Requests, req)
		s.NumIDs = max(s.NumIDs, req.ID+1)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: scanning %s: %w", name, err)
	}
	return s, nil
}

func parseRequest(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields[0]) != 1 {
		return Request{}, fmt.Errorf("unknown request %q", fields[0])
	}

	req := Request{Op: OpKind(fields[0][0])}
	want := 3
	switch req.Op {
	case OpAlloc, OpRealloc:
	case OpFree:
		want = 2
	default:
		return Request{}, fmt.Errorf("unknown request %q", fields[0])
	}
	if len(fields) != want {
		return Request{}, fmt.Errorf("%s takes %d arguments, got %d", req.Op, want-1, len(fields)-1)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 || id > MaxID {
		return Request{}, fmt.Errorf("invalid id %q", fields[1])
	}
	req.ID = id

	if want == 3 {
		size, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil || size > math.MaxInt32 {
			return Request{}, fmt.Errorf("invalid size %q", fields[2])
		}
		req.Size = int(size)
	}
	return req, nil
}
