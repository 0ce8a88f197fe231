package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/heapkit/heap/alloc"
	"github.com/joshuapare/heapkit/heap/trace"
)

var (
	runCorrectness bool
	runPerformance bool
	runMaxSegment  string
	runTrials      int
	runTarget      float64
)

func init() {
	cmd := newRunCmd()
	cmd.Flags().BoolVarP(&runCorrectness, "correctness", "c", false, "Only check correctness")
	cmd.Flags().BoolVarP(&runPerformance, "performance", "p", false, "Only measure performance")
	cmd.Flags().StringVar(&runMaxSegment, "max-segment", "8GiB", "Reserved heap segment size (e.g. 64MiB)")
	cmd.Flags().IntVar(&runTrials, "trials", trace.DefaultTrials, "Timed runs per script (fastest counts)")
	cmd.Flags().Float64Var(&runTarget, "target", trace.DefaultTargetThroughput,
		"Throughput target in Kreq/sec for the relative figure")
	rootCmd.AddCommand(cmd)
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <script|dir>...",
		Short: "Replay scripts and report correctness, utilization and throughput",
		Long: `The run command replays each script against a fresh heap. A directory
argument contributes every *.script file it contains.

By default each script gets a correctness pass and, if that succeeds, a
timed pass. Use -c or -p to run only one of them.

Example:
  heapctl run testdata/
  heapctl run -c trace1.script trace2.script
  heapctl run -p --max-segment 256MiB testdata/ --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(args)
		},
	}
	return cmd
}

// runReport is the --json output of the run command.
type runReport struct {
	Scripts []scriptReport `json:"scripts"`
	Summary summaryReport  `json:"summary"`
}

type scriptReport struct {
	Name        string  `json:"name"`
	Requests    int     `json:"requests"`
	Valid       bool    `json:"valid"`
	Error       string  `json:"error,omitempty"`
	Seconds     float64 `json:"seconds,omitempty"`
	Utilization float64 `json:"utilization,omitempty"`
	KReqPerSec  float64 `json:"kreq_per_sec,omitempty"`
	PeakPayload int     `json:"peak_payload,omitempty"`
	PeakSegment int     `json:"peak_segment,omitempty"`
}

type summaryReport struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Requests    int     `json:"requests"`
	Seconds     float64 `json:"seconds"`
	Utilization float64 `json:"utilization"`
	KReqPerSec  float64 `json:"kreq_per_sec"`
	Target      float64 `json:"target_kreq_per_sec"`
	Relative    float64 `json:"relative_throughput"`
}

func runRun(args []string) error {
	mode, err := selectMode(runCorrectness, runPerformance)
	if err != nil {
		return err
	}
	maxSegment, err := parseSize(runMaxSegment)
	if err != nil {
		return err
	}
	if runTarget <= 0 {
		return fmt.Errorf("invalid throughput target %v", runTarget)
	}

	scripts, err := loadScripts(args)
	if err != nil {
		return err
	}

	logger := newLogger()
	h, err := alloc.New(&alloc.Options{MaxSegmentSize: maxSegment, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create heap: %w", err)
	}
	defer h.Close()

	runner := trace.NewRunner(h, mode, logger)
	runner.SetTrials(runTrials)

	results := make([]trace.Result, 0, len(scripts))
	for _, s := range scripts {
		printVerbose("Evaluating allocator on %s (%d requests)\n", s.Name, len(s.Requests))
		results = append(results, runner.Run(s))
	}
	sum := trace.Summarize(results)
	sum.Target = runTarget

	if jsonOut {
		if err := printJSON(buildReport(results, sum)); err != nil {
			return err
		}
	} else {
		printTable(results, sum, mode)
	}

	if sum.Passed != sum.Total {
		return fmt.Errorf("%d of %d scripts failed", sum.Total-sum.Passed, sum.Total)
	}
	return nil
}

func selectMode(correctness, performance bool) (trace.Mode, error) {
	switch {
	case correctness && performance:
		return 0, fmt.Errorf("-c and -p are mutually exclusive")
	case correctness:
		return trace.Correctness, nil
	case performance:
		return trace.Performance, nil
	}
	return trace.Both, nil
}

// parseSize accepts human-readable sizes such as "64MiB" or "1GB".
func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > math.MaxInt {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return int(n), nil
}

func loadScripts(args []string) ([]*trace.Script, error) {
	files, err := trace.Collect(args...)
	if err != nil {
		return nil, err
	}
	scripts := make([]*trace.Script, 0, len(files))
	for _, f := range files {
		printVerbose("Reading script: %s\n", f)
		s, err := trace.ParseFile(f)
		if err != nil {
			return nil, err
		}
		scripts = append(scripts, s)
	}
	return scripts, nil
}

func buildReport(results []trace.Result, sum trace.Summary) runReport {
	rep := runReport{
		Scripts: make([]scriptReport, 0, len(results)),
		Summary: summaryReport{
			Total:       sum.Total,
			Passed:      sum.Passed,
			Requests:    sum.Requests,
			Seconds:     sum.Elapsed.Seconds(),
			Utilization: sum.Utilization,
			KReqPerSec:  sum.Throughput,
			Target:      sum.Target,
			Relative:    sum.RelativeThroughput(),
		},
	}
	for _, r := range results {
		sr := scriptReport{
			Name:        r.Name,
			Requests:    r.Requests,
			Valid:       r.Valid,
			Seconds:     r.Elapsed.Seconds(),
			Utilization: r.Utilization,
			KReqPerSec:  r.Throughput(),
			PeakPayload: r.PeakPayload,
			PeakSegment: r.PeakSegment,
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		rep.Scripts = append(rep.Scripts, sr)
	}
	return rep
}

func printTable(results []trace.Result, sum trace.Summary, mode trace.Mode) {
	dashes := strings.Repeat("-", 88)
	printInfo("\n%s\n%s\n", styled(headerStyle, fmt.Sprintf("%-20s %-8s %11s %10s %12s %10s %10s",
		"script name", "correct?", "utilization", "requests", "secs", "Kreq/sec", "peak seg")), dashes)

	for _, r := range results {
		correct := fmt.Sprintf("%-8s", "")
		if mode.Has(trace.Correctness) {
			if r.Valid {
				correct = styled(passStyle, fmt.Sprintf("%-8s", "Y"))
			} else {
				correct = styled(failStyle, fmt.Sprintf("%-8s", "N"))
			}
		}
		if r.Valid && mode.Has(trace.Performance) {
			printInfo("%-20s %s %10.0f%% %10d %12.6f %10.0f %10s\n",
				r.Name, correct, r.Utilization*100, r.Requests, r.Elapsed.Seconds(),
				r.Throughput(), humanize.IBytes(uint64(r.PeakSegment)))
		} else {
			printInfo("%-20s %s %s\n", r.Name, correct,
				styled(mutedStyle, fmt.Sprintf("%11s %10s %12s %10s %10s", "-", "-", "-", "-", "-")))
		}
		if r.Err != nil {
			printError("%v\n", r.Err)
		}
	}
	printInfo("%s\n", dashes)

	name := fmt.Sprintf("Aggregate %d of %d", sum.Passed, sum.Total)
	if mode.Has(trace.Performance) && sum.Passed > 0 {
		printInfo("%s %10.0f%% %10s %12.6f %10.0f\n",
			styled(summaryStyle, fmt.Sprintf("%-29s", name)), sum.Utilization*100,
			humanize.Comma(int64(sum.Requests)), sum.Elapsed.Seconds(), sum.Throughput)
		printInfo("\t%.0f%% (utilization) %.0f%% (throughput, relative to target %.0f Kreq/sec)\n",
			sum.Utilization*100, sum.RelativeThroughput()*100, sum.Target)
	} else {
		printInfo("%s\n", styled(summaryStyle, name))
	}
}
