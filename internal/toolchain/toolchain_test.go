package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

// fakeInstaller writes an executable primary tool into the prefix.
type fakeInstaller struct {
	calls int
	tools []string
	err   error
}

func (f *fakeInstaller) Install(_ context.Context, _ string, prefix string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	tools := f.tools
	if len(tools) == 0 {
		tools = []string{PrimaryTool}
	}
	for _, tool := range tools {
		if err := writeTool(prefix, tool); err != nil {
			return err
		}
	}
	return nil
}

func writeTool(prefix, tool string) error {
	dir := filepath.Join(prefix, "bin")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, paths.ExecutableName(tool)), []byte("#!/bin/sh\n"), 0o755)
}

func newTestToolchain(t *testing.T, name string) *Toolchain {
	t.Helper()
	tc, err := New(paths.New(t.TempDir()), name, notify.Discard)
	if err != nil {
		t.Fatal(err)
	}
	return tc
}

func TestValidateName(t *testing.T) {
	for _, bad := range []string{"", " ", ".", "..", "a/b", `a\b`} {
		if err := ValidateName(bad); !errors.Is(err, errs.ErrConfiguration) {
			t.Fatalf("expected configuration error for %q, got %v", bad, err)
		}
	}
	for _, good := range []string{"stable", "nightly-2015-01-01", "1.0.0-beta"} {
		if err := ValidateName(good); err != nil {
			t.Fatalf("expected %q to be valid: %v", good, err)
		}
	}
}

func TestExistsIsLive(t *testing.T) {
	tc := newTestToolchain(t, "nightly")
	if tc.Exists() {
		t.Fatal("expected fresh toolchain not to exist")
	}
	if err := writeTool(tc.Prefix(), PrimaryTool); err != nil {
		t.Fatal(err)
	}
	if !tc.Exists() {
		t.Fatal("expected toolchain to exist after binary appears")
	}
	if err := os.RemoveAll(tc.Prefix()); err != nil {
		t.Fatal(err)
	}
	if tc.Exists() {
		t.Fatal("expected toolchain to disappear with its prefix")
	}
}

func TestInstallIfMissingIsAGuard(t *testing.T) {
	tc := newTestToolchain(t, "stable")
	inst := &fakeInstaller{}

	installed, err := tc.InstallIfMissing(context.Background(), inst)
	if err != nil || !installed {
		t.Fatalf("first call: installed=%v err=%v", installed, err)
	}
	installed, err = tc.InstallIfMissing(context.Background(), inst)
	if err != nil || installed {
		t.Fatalf("second call: installed=%v err=%v", installed, err)
	}
	if inst.calls != 1 {
		t.Fatalf("expected installer called once, got %d", inst.calls)
	}
}

func TestInstallRequiresPrimaryTool(t *testing.T) {
	tc := newTestToolchain(t, "stable")
	err := tc.Install(context.Background(), &fakeInstaller{tools: []string{"cargo"}})
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCreateCommandSetsLibraryPath(t *testing.T) {
	tc := newTestToolchain(t, "nightly")
	if err := writeTool(tc.Prefix(), PrimaryTool); err != nil {
		t.Fatal(err)
	}

	cmd, err := tc.CreateCommand(PrimaryTool)
	if err != nil {
		t.Fatalf("CreateCommand: %v", err)
	}
	if cmd.Path != tc.BinaryFile(PrimaryTool) {
		t.Fatalf("expected path %s, got %s", tc.BinaryFile(PrimaryTool), cmd.Path)
	}

	var value string
	for _, kv := range cmd.Env {
		if k, v, ok := strings.Cut(kv, "="); ok && envKeyEqual(k, LDPathVar()) {
			value = v
		}
	}
	if !strings.HasPrefix(value, tc.LibDir()) {
		t.Fatalf("expected %s to start with %s, got %q", LDPathVar(), tc.LibDir(), value)
	}
}

func TestCreateCommandErrors(t *testing.T) {
	tc := newTestToolchain(t, "nightly")
	if _, err := tc.CreateCommand(PrimaryTool); !errors.Is(err, errs.ErrToolchainNotInstalled) {
		t.Fatalf("expected not installed error, got %v", err)
	}

	if err := writeTool(tc.Prefix(), PrimaryTool); err != nil {
		t.Fatal(err)
	}
	if _, err := tc.CreateCommand("cargo"); !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error for missing binary, got %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	tc := newTestToolchain(t, "beta")
	if err := writeTool(tc.Prefix(), PrimaryTool); err != nil {
		t.Fatal(err)
	}
	if err := tc.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(tc.Prefix()); !os.IsNotExist(err) {
		t.Fatalf("expected prefix removed, stat err=%v", err)
	}
	if err := tc.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestPrependEnvPath(t *testing.T) {
	sep := string(os.PathListSeparator)
	env := []string{"HOME=/home/a", LDPathVar() + "=/usr/lib"}
	got := PrependEnvPath(env, LDPathVar(), "/tc/lib")

	want := LDPathVar() + "=/tc/lib" + sep + "/usr/lib"
	if got[len(got)-1] != want {
		t.Fatalf("expected %q, got %q", want, got[len(got)-1])
	}
	if len(got) != 2 {
		t.Fatalf("expected no duplicate entries, got %v", got)
	}

	got = PrependEnvPath([]string{"HOME=/home/a"}, "LD_LIBRARY_PATH", "/tc/lib")
	if got[len(got)-1] != "LD_LIBRARY_PATH=/tc/lib" {
		t.Fatalf("expected fresh variable, got %v", got)
	}
}
