package main

import (
	"strings"
	"testing"
)

func TestCheckCommand(t *testing.T) {
	resetFlags()
	quiet = false
	checkDump = true

	out, err := captureOutput(t, func() error {
		return runCheck([]string{testScriptPath(t, "coalesce.script")})
	})
	if err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}
	for _, want := range []string{"coalesce: OK", "Segment:", "Allocated:", "Free lists:", "bucket"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCheckCommandJSON(t *testing.T) {
	resetFlags()
	jsonOut = true
	checkDump = true

	out, err := captureOutput(t, func() error {
		return runCheck([]string{testScriptPath(t, "basic.script")})
	})
	if err != nil {
		t.Fatalf("runCheck() error = %v", err)
	}

	var rep checkReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if !rep.Valid || rep.Requests != 8 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Layout == nil || rep.Layout.SegmentSize != 4096 {
		t.Fatalf("unexpected layout: %+v", rep.Layout)
	}
	// basic.script frees everything it allocates
	if rep.Layout.AllocatedCount != 0 || rep.Layout.FreeCount != 1 {
		t.Errorf("expected one free block, got %+v", rep.Layout)
	}
}

func TestCheckCommandFailure(t *testing.T) {
	resetFlags()
	jsonOut = true
	checkMaxSegment = "16KiB"
	path := writeScript(t, "huge.script", "# too big\na 0 100000\n")

	out, err := captureOutput(t, func() error { return runCheck([]string{path}) })
	if err == nil {
		t.Fatal("expected check failure")
	}

	var rep checkReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	if rep.Valid || rep.Line != 2 || !strings.Contains(rep.Error, "alloc(100000)") {
		t.Errorf("unexpected report: %+v", rep)
	}
}

func TestCheckCommandMalformed(t *testing.T) {
	resetFlags()
	path := writeScript(t, "bad.script", "a 0\n")

	_, err := captureOutput(t, func() error { return runCheck([]string{path}) })
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
