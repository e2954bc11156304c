package dist

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"multirust/internal/errs"
)

func writeTarGz(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, body := range files {
		hdr := &tar.Header{Name: name, Mode: 0o755, Size: int64(len(body)), Typeflag: tar.TypeReg}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatalf("write body: %v", err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
}

func writeArtifact(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		writeZip(t, path, files)
		return
	}
	writeTarGz(t, path, files)
}

func sha256File(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestArchivesInstallStripsWrappingDir(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "rust.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"rust-nightly/bin/rustc":    "compiler",
		"rust-nightly/lib/libstd":   "std",
		"rust-nightly/share/readme": "docs",
	})

	prefix := filepath.Join(dir, "toolchains", "nightly")
	if err := (Archives{Paths: []string{archive}}).Install(context.Background(), "nightly", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "compiler" {
		t.Fatalf("expected compiler contents, got %q", got)
	}
	if got := readFile(t, filepath.Join(prefix, "lib", "libstd")); got != "std" {
		t.Fatalf("expected std contents, got %q", got)
	}

	entries, err := os.ReadDir(filepath.Dir(prefix))
	if err != nil {
		t.Fatalf("read toolchains dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected staging dirs to be cleaned up, got %d entries", len(entries))
	}
}

func TestArchivesInstallLayersInOrder(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.tar.gz")
	second := filepath.Join(dir, "b.zip")
	writeTarGz(t, first, map[string]string{"bin/rustc": "one", "bin/rustdoc": "doc"})
	writeZip(t, second, map[string]string{"bin/rustc": "two", "bin/cargo": "cargo"})

	prefix := filepath.Join(dir, "custom")
	if err := (Archives{Paths: []string{first, second}}).Install(context.Background(), "custom", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "two" {
		t.Fatalf("expected later archive to win, got %q", got)
	}
	for _, tool := range []string{"rustdoc", "cargo"} {
		if _, err := os.Stat(filepath.Join(prefix, "bin", tool)); err != nil {
			t.Fatalf("expected %s to be installed: %v", tool, err)
		}
	}
}

func TestArchivesInstallFailureKeepsExistingPrefix(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "stable")
	if err := os.MkdirAll(filepath.Join(prefix, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(prefix, "bin", "rustc"), []byte("old"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	bogus := filepath.Join(dir, "broken.tar.gz")
	if err := os.WriteFile(bogus, []byte("not gzip"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := (Archives{Paths: []string{bogus}}).Install(context.Background(), "stable", prefix)
	if !errors.Is(err, errs.ErrFilesystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "old" {
		t.Fatalf("expected previous install to survive, got %q", got)
	}
}

func TestArchivesRejectUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "rust.rar")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := (Archives{Paths: []string{src}}).Install(context.Background(), "x", filepath.Join(dir, "x")); err == nil {
		t.Fatalf("expected unsupported format error")
	}
}

type tarEntry struct {
	name string
	link string
	body string
}

func writeTarEntries(t *testing.T, path string, entries []tarEntry) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create archive: %v", err)
	}
	defer f.Close()
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o755, Size: int64(len(e.body)), Typeflag: tar.TypeReg}
		if e.link != "" {
			hdr = &tar.Header{Name: e.name, Mode: 0o777, Linkname: e.link, Typeflag: tar.TypeSymlink}
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("write header: %v", err)
		}
		if e.link == "" {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("write body: %v", err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("close tar: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func TestArchivesRejectLinksLeavingPrefix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	outside := filepath.Join(dir, "outside")
	if err := os.MkdirAll(outside, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	cases := []struct {
		name    string
		entries []tarEntry
	}{
		{"absolute target", []tarEntry{
			{name: "bin/rustc", body: "compiler"},
			{name: "lib", link: outside},
			{name: "lib/planted", body: "pwned"},
		}},
		{"relative target", []tarEntry{
			{name: "bin/rustc", body: "compiler"},
			{name: "lib", link: "../../outside"},
			{name: "lib/planted", body: "pwned"},
		}},
		{"write through in-tree link", []tarEntry{
			{name: "bin/rustc", body: "compiler"},
			{name: "self", link: "."},
			{name: "up", link: "self/.."},
			{name: "up/planted", body: "pwned"},
		}},
		{"overwrite a link", []tarEntry{
			{name: "bin/rustc", link: "../lib/rustc"},
			{name: "bin/rustc", body: "pwned"},
		}},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			archive := filepath.Join(dir, fmt.Sprintf("evil-%d.tar.gz", i))
			writeTarEntries(t, archive, tc.entries)

			prefix := filepath.Join(dir, "toolchains", fmt.Sprintf("tc-%d", i))
			err := (Archives{Paths: []string{archive}}).Install(context.Background(), "tc", prefix)
			if err == nil {
				t.Fatalf("expected install to fail")
			}
			for _, p := range []string{filepath.Join(outside, "planted"), filepath.Join(dir, "toolchains", "planted")} {
				if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
					t.Fatalf("expected nothing written at %s, got %v", p, err)
				}
			}
			if _, err := os.Stat(prefix); !errors.Is(err, os.ErrNotExist) {
				t.Fatalf("expected no prefix after failed install, got %v", err)
			}
		})
	}
}

func TestArchivesKeepInTreeLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	archive := filepath.Join(dir, "rust.tar.gz")
	writeTarEntries(t, archive, []tarEntry{
		{name: "bin/rustc", body: "compiler"},
		{name: "lib/libstd.so.1", body: "std"},
		{name: "lib/libstd.so", link: "libstd.so.1"},
	})

	prefix := filepath.Join(dir, "stable")
	if err := (Archives{Paths: []string{archive}}).Install(context.Background(), "stable", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "lib", "libstd.so")); got != "std" {
		t.Fatalf("expected link to resolve to std, got %q", got)
	}
}

func TestSafeJoinRejectsTraversal(t *testing.T) {
	dest := t.TempDir()
	if _, err := safeJoin(dest, "../evil"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := safeJoin(dest, "bin/rustc"); err != nil {
		t.Fatalf("expected nested entry to be accepted: %v", err)
	}
}

func TestLocalCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "build")
	if err := os.MkdirAll(filepath.Join(src, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "bin", "rustc"), []byte("local"), 0o755); err != nil {
		t.Fatalf("write: %v", err)
	}

	prefix := filepath.Join(dir, "toolchains", "dev")
	if err := (Local{Source: src}).Install(context.Background(), "dev", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "local" {
		t.Fatalf("expected copied file, got %q", got)
	}
	info, err := os.Lstat(prefix)
	if err != nil {
		t.Fatalf("lstat: %v", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		t.Fatalf("expected a real directory for copy-local")
	}
}

func TestLocalLink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "build")
	if err := os.MkdirAll(filepath.Join(src, "bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	prefix := filepath.Join(dir, "toolchains", "dev")
	if err := (Local{Source: src, Link: true}).Install(context.Background(), "dev", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	target, err := os.Readlink(prefix)
	if err != nil {
		t.Fatalf("expected symlink: %v", err)
	}
	if target != src {
		t.Fatalf("expected link to %s, got %s", src, target)
	}
}

func TestLocalRejectsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "file")
	if err := os.WriteFile(src, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	err := (Local{Source: src}).Install(context.Background(), "dev", filepath.Join(dir, "dev"))
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDistFromLocalRoot(t *testing.T) {
	root := t.TempDir()
	artifact := filepath.Join(root, ArtifactName("stable"))
	writeArtifact(t, artifact, map[string]string{"bin/rustc": "stable"})
	if err := os.WriteFile(artifact+".sha256", []byte(sha256File(t, artifact)+"  "+ArtifactName("stable")+"\n"), 0o644); err != nil {
		t.Fatalf("write checksum: %v", err)
	}

	prefix := filepath.Join(t.TempDir(), "stable")
	if err := (Dist{Root: root}).Install(context.Background(), "stable", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "stable" {
		t.Fatalf("expected stable contents, got %q", got)
	}
}

func TestDistChecksumMismatch(t *testing.T) {
	root := t.TempDir()
	artifact := filepath.Join(root, ArtifactName("beta"))
	writeArtifact(t, artifact, map[string]string{"bin/rustc": "beta"})
	if err := os.WriteFile(artifact+".sha256", []byte("deadbeef\n"), 0o644); err != nil {
		t.Fatalf("write checksum: %v", err)
	}

	prefix := filepath.Join(t.TempDir(), "beta")
	err := (Dist{Root: root}).Install(context.Background(), "beta", prefix)
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, statErr := os.Stat(prefix); !os.IsNotExist(statErr) {
		t.Fatalf("expected prefix to be absent after failed install")
	}
}

func TestDistMissingArtifact(t *testing.T) {
	err := (Dist{Root: t.TempDir()}).Install(context.Background(), "nightly", filepath.Join(t.TempDir(), "nightly"))
	if !errors.Is(err, errs.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestDistOverHTTP(t *testing.T) {
	staging := t.TempDir()
	artifact := filepath.Join(staging, ArtifactName("nightly"))
	writeArtifact(t, artifact, map[string]string{"rust/bin/rustc": "nightly"})
	sum := sha256File(t, artifact)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/dist/" + ArtifactName("nightly"):
			http.ServeFile(w, r, artifact)
		case "/dist/" + ArtifactName("nightly") + ".sha256":
			_, _ = w.Write([]byte(sum))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	downloads := filepath.Join(t.TempDir(), "downloads")
	prefix := filepath.Join(t.TempDir(), "nightly")
	d := Dist{Root: srv.URL + "/dist/", DownloadsDir: downloads, Client: srv.Client()}
	if err := d.Install(context.Background(), "nightly", prefix); err != nil {
		t.Fatalf("install: %v", err)
	}
	if got := readFile(t, filepath.Join(prefix, "bin", "rustc")); got != "nightly" {
		t.Fatalf("expected nightly contents, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(downloads, ArtifactName("nightly"))); err != nil {
		t.Fatalf("expected download to be kept: %v", err)
	}
}
