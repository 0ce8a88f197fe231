package main

import (
	"strings"
	"testing"

	"github.com/joshuapare/heapkit/heap/trace"
)

func TestRunCommand(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		correctness bool
		performance bool
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "all sample scripts",
			args:        []string{"../../heap/trace/testdata"},
			wantContain: []string{"basic", "mixed", "Aggregate 5 of 5"},
		},
		{
			name:        "correctness only",
			args:        []string{"../../heap/trace/testdata/basic.script"},
			correctness: true,
			wantContain: []string{"basic", "Y", "Aggregate 1 of 1"},
		},
		{
			name:        "performance only",
			args:        []string{"../../heap/trace/testdata/pages.script"},
			performance: true,
			wantContain: []string{"pages", "%", "KiB", "relative to target 12000 Kreq/sec"},
		},
		{
			name:    "missing path",
			args:    []string{"does-not-exist"},
			wantErr: true,
		},
		{
			name:        "both modes rejected",
			args:        []string{"../../heap/trace/testdata"},
			correctness: true,
			performance: true,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			quiet = false
			runCorrectness = tt.correctness
			runPerformance = tt.performance

			out, err := captureOutput(t, func() error { return runRun(tt.args) })
			if (err != nil) != tt.wantErr {
				t.Fatalf("runRun() error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestRunCommandJSON(t *testing.T) {
	resetFlags()
	jsonOut = true

	out, err := captureOutput(t, func() error {
		return runRun([]string{testScriptPath(t, "realloc.script")})
	})
	if err != nil {
		t.Fatalf("runRun() error = %v", err)
	}

	var rep runReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if len(rep.Scripts) != 1 || rep.Scripts[0].Name != "realloc" || !rep.Scripts[0].Valid {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Summary.Passed != 1 || rep.Summary.Requests != 13 {
		t.Errorf("unexpected summary: %+v", rep.Summary)
	}
	if rep.Summary.Target != trace.DefaultTargetThroughput {
		t.Errorf("target = %v, want %v", rep.Summary.Target, trace.DefaultTargetThroughput)
	}
	if want := rep.Summary.KReqPerSec / rep.Summary.Target; rep.Summary.Relative != want {
		t.Errorf("relative = %v, want %v", rep.Summary.Relative, want)
	}
}

func TestRunCommandRejectsBadTarget(t *testing.T) {
	resetFlags()
	runTarget = 0

	_, err := captureOutput(t, func() error {
		return runRun([]string{testScriptPath(t, "basic.script")})
	})
	if err == nil || !strings.Contains(err.Error(), "throughput target") {
		t.Fatalf("expected target error, got %v", err)
	}
}

func TestRunCommandReportsFailure(t *testing.T) {
	resetFlags()
	runMaxSegment = "16KiB"
	path := writeScript(t, "huge.script", "a 0 1000000\n")

	_, err := captureOutput(t, func() error { return runRun([]string{path}) })
	if err == nil || !strings.Contains(err.Error(), "1 of 1 scripts failed") {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestSelectMode(t *testing.T) {
	if m, _ := selectMode(false, false); m != trace.Both {
		t.Errorf("default mode = %v", m)
	}
	if m, _ := selectMode(true, false); m != trace.Correctness {
		t.Errorf("-c mode = %v", m)
	}
	if m, _ := selectMode(false, true); m != trace.Performance {
		t.Errorf("-p mode = %v", m)
	}
	if _, err := selectMode(true, true); err == nil {
		t.Error("expected error for -c -p")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"64MiB", 64 << 20, false},
		{"8GiB", 8 << 30, false},
		{"4096", 4096, false},
		{"1 KB", 1000, false},
		{"0", 0, true},
		{"lots", 0, true},
	}
	for _, tt := range tests {
		got, err := parseSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
