package notify

import (
	"bytes"
	"testing"
)

func TestNotifierRoutesLevels(t *testing.T) {
	var out, errOut bytes.Buffer
	n := &Notifier{Out: &out, Err: &errOut}

	n.Report(LevelVerbose, "hidden")
	n.Report(LevelNormal, "plain")
	n.Report(LevelInfo, "installed")
	n.Report(LevelWarn, "careful")
	n.Report(LevelError, "broken")

	if got := out.String(); got != "plain\n" {
		t.Fatalf("expected stdout %q, got %q", "plain\n", got)
	}
	want := "info: installed\nwarning: careful\nerror: broken\n"
	if got := errOut.String(); got != want {
		t.Fatalf("expected stderr %q, got %q", want, got)
	}
}

func TestNotifierVerboseField(t *testing.T) {
	var out bytes.Buffer
	n := &Notifier{Out: &out, Err: &bytes.Buffer{}, Verbose: true}

	Verbosef(n, "creating directory %s", "/tmp/x")
	if got := out.String(); got != "creating directory /tmp/x\n" {
		t.Fatalf("expected verbose output, got %q", got)
	}
}

func TestTeeFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	Warnf(Tee{a, nil, b}, "%d problems", 2)

	for i, r := range []*Recorder{a, b} {
		msgs := r.Messages(LevelWarn)
		if len(msgs) != 1 || msgs[0] != "2 problems" {
			t.Fatalf("sink %d: expected one warning, got %v", i, msgs)
		}
	}
}

func TestLevelString(t *testing.T) {
	if LevelWarn.String() != "warning" {
		t.Fatalf("expected warning, got %s", LevelWarn.String())
	}
	if Level(42).String() != "level(42)" {
		t.Fatalf("unexpected fallback %s", Level(42).String())
	}
}
