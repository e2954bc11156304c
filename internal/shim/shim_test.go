package shim

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"

	"multirust/internal/paths"
)

func writeFakeExe(t *testing.T, dir string) string {
	t.Helper()
	exe := filepath.Join(dir, paths.ExecutableName("multirust-build"))
	if err := os.WriteFile(exe, []byte("binary contents"), 0o755); err != nil {
		t.Fatalf("write exe: %v", err)
	}
	return exe
}

func TestInstallTwiceLeavesFixedSet(t *testing.T) {
	layout := paths.New(filepath.Join(t.TempDir(), ".multirust"))
	exe := writeFakeExe(t, t.TempDir())

	for i := 0; i < 2; i++ {
		if err := Install(Options{Layout: layout, Source: exe}); err != nil {
			t.Fatalf("install %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(layout.BinDir)
	if err != nil {
		t.Fatalf("read bin: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	var want []string
	for _, tool := range Tools {
		want = append(want, tool, tool+".bat")
	}
	want = append(want, filepath.Base(layout.SelfBinary()))
	sort.Strings(want)
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, names)
	}

	info, err := os.Stat(layout.SelfBinary())
	if err != nil {
		t.Fatalf("stat binary: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		t.Fatalf("expected binary to be executable, got %v", info.Mode())
	}
	if !SelfInstalled(layout) {
		t.Fatalf("expected SelfInstalled after install")
	}
	if _, err := os.Stat(exe); err != nil {
		t.Fatalf("copy install must keep the source: %v", err)
	}
}

func TestShimContents(t *testing.T) {
	layout := paths.New(t.TempDir())
	if err := Install(Options{Layout: layout, Source: writeFakeExe(t, t.TempDir())}); err != nil {
		t.Fatalf("install: %v", err)
	}

	sh, err := os.ReadFile(filepath.Join(layout.BinDir, "cargo"))
	if err != nil {
		t.Fatalf("read shim: %v", err)
	}
	if !strings.HasPrefix(string(sh), "#!/bin/sh\n") || !strings.Contains(string(sh), `proxy cargo "$@"`) {
		t.Fatalf("unexpected shell shim: %q", sh)
	}
	bat, err := os.ReadFile(filepath.Join(layout.BinDir, "rust-gdb.bat"))
	if err != nil {
		t.Fatalf("read bat: %v", err)
	}
	if !strings.HasPrefix(string(bat), `@"%~dp0\multirust" proxy rust-gdb %*`) {
		t.Fatalf("unexpected batch shim: %q", bat)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(filepath.Join(layout.BinDir, "rustc"))
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o755 {
			t.Fatalf("expected 0755 shim, got %v", info.Mode().Perm())
		}
	}
}

func TestInstallOntoItselfKeepsBinary(t *testing.T) {
	layout := paths.New(t.TempDir())
	if err := Install(Options{Layout: layout, Source: writeFakeExe(t, t.TempDir())}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if err := Install(Options{Layout: layout, Source: layout.SelfBinary()}); err != nil {
		t.Fatalf("reinstall from installed binary: %v", err)
	}
	data, err := os.ReadFile(layout.SelfBinary())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "binary contents" {
		t.Fatalf("expected binary to survive, got %q", data)
	}
	if !IsInstalledBinary(layout, layout.SelfBinary()) {
		t.Fatalf("expected installed binary to be recognised")
	}
}

func TestInstallMove(t *testing.T) {
	layout := paths.New(t.TempDir())
	exe := writeFakeExe(t, t.TempDir())
	if err := Install(Options{Layout: layout, Source: exe, Move: true}); err != nil {
		t.Fatalf("install: %v", err)
	}
	if _, err := os.Stat(exe); !os.IsNotExist(err) {
		t.Fatalf("expected source to be moved away")
	}
	if !SelfInstalled(layout) {
		t.Fatalf("expected moved binary in bin dir")
	}
}

func TestSelfInstalledFreshHome(t *testing.T) {
	if SelfInstalled(paths.New(t.TempDir())) {
		t.Fatalf("fresh home must not report installed")
	}
}
