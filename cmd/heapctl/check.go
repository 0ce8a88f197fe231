package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	checkDump       bool
	checkMaxSegment string
)

func init() {
	cmd := newCheckCmd()
	cmd.Flags().BoolVar(&checkDump, "dump", false, "Print the block layout and free lists after the replay")
	cmd.Flags().StringVar(&checkMaxSegment, "max-segment", "8GiB", "Reserved heap segment size (e.g. 64MiB)")
	rootCmd.AddCommand(cmd)
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <script>",
		Short: "Replay one script with heap validation after every request",
		Long: `The check command replays a single script in correctness mode. The heap
validator runs after every request; on failure every violation it found is
printed together with the script line that triggered it.

Example:
  heapctl check trace.script
  heapctl check trace.script --dump
  heapctl check trace.script --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(args)
		},
	}
	return cmd
}

// checkReport is the --json output of the check command.
type checkReport struct {
	Script     string            `json:"script"`
	Requests   int               `json:"requests"`
	Valid      bool              `json:"valid"`
	Error      string            `json:"error,omitempty"`
	Line       int               `json:"line,omitempty"`
	Violations []violationReport `json:"violations,omitempty"`
	Layout     *layoutReport     `json:"layout,omitempty"`
}

type violationReport struct {
	Type    string `json:"type"`
	Bucket  int    `json:"bucket"`
	Offset  uint64 `json:"offset"`
	Message string `json:"message"`
}

type layoutReport struct {
	SegmentSize    int `json:"segment_size"`
	AllocatedCount int `json:"allocated_blocks"`
	AllocatedBytes int `json:"allocated_bytes"`
	FreeCount      int `json:"free_blocks"`
	FreeBytes      int `json:"free_bytes"`
	LargestFree    int `json:"largest_free"`
}

func runCheck(args []string) error {
	maxSegment, err := parseSize(checkMaxSegment)
	if err != nil {
		return err
	}

	printVerbose("Reading script: %s\n", args[0])
	s, err := trace.ParseFile(args[0])
	if err != nil {
		return err
	}

	logger := newLogger()
	h, err := alloc.New(&alloc.Options{MaxSegmentSize: maxSegment, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create heap: %w", err)
	}
	defer h.Close()

	runner := trace.NewRunner(h, trace.Correctness, logger)
	replayErr := runner.Verify(s)

	rep := checkReport{Script: s.Name, Requests: len(s.Requests), Valid: replayErr == nil}
	var re *trace.ReplayError
	if errors.As(replayErr, &re) {
		rep.Error = re.Msg
		rep.Line = re.Line
		for _, v := range re.Violations {
			rep.Violations = append(rep.Violations, violationReport{
				Type:    v.Type,
				Bucket:  v.Bucket,
				Offset:  v.Offset,
				Message: v.Message,
			})
		}
	} else if replayErr != nil {
		rep.Error = replayErr.Error()
	}
	if checkDump {
		l := layout(h)
		rep.Layout = &l
	}

	if jsonOut {
		if err := printJSON(rep); err != nil {
			return err
		}
	} else {
		printCheck(rep)
		if checkDump && !quiet {
			if err := h.DumpFreeLists(os.Stdout); err != nil {
				return err
			}
		}
	}

	if replayErr != nil {
		return fmt.Errorf("%s: check failed", s.Name)
	}
	return nil
}

// layout walks the heap and tallies its blocks.
func layout(h *alloc.Heap) layoutReport {
	l := layoutReport{SegmentSize: h.SegmentSize()}
	h.Walk(func(b alloc.BlockInfo) bool {
		size := int(b.Size)
		if b.Allocated {
			l.AllocatedCount++
			l.AllocatedBytes += size
		} else {
			l.FreeCount++
			l.FreeBytes += size
			l.LargestFree = max(l.LargestFree, size)
		}
		return true
	})
	return l
}

func printCheck(rep checkReport) {
	if rep.Valid {
		printInfo("%s: %s (%d requests)\n", rep.Script, styled(passStyle, "OK"), rep.Requests)
	} else {
		printError("%s line %d: %s %s\n", rep.Script, rep.Line, styled(failStyle, "FAILED"), rep.Error)
		for _, v := range rep.Violations {
			printError("  %-10s bucket %2d offset 0x%X: %s\n", v.Type, v.Bucket, v.Offset, v.Message)
		}
	}

	if l := rep.Layout; l != nil {
		printInfo("\nSegment: %s committed\n", humanize.IBytes(uint64(l.SegmentSize)))
		printInfo("  Allocated: %d blocks, %s\n", l.AllocatedCount, humanize.IBytes(uint64(l.AllocatedBytes)))
		printInfo("  Free:      %d blocks, %s (largest %s)\n",
			l.FreeCount, humanize.IBytes(uint64(l.FreeBytes)), humanize.IBytes(uint64(l.LargestFree)))
		printInfo("\nFree lists:\n")
	}
}
