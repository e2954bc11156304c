// Package dist populates toolchain install prefixes from local directories,
// installer archives, or a distribution root.
package dist

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"multirust/internal/errs"
	"multirust/internal/notify"
)

// Local installs a toolchain from a directory on disk, either by copying the
// tree or by linking the prefix to it.
type Local struct {
	Source string
	Link   bool
	Sink   notify.Sink
}

// Install implements toolchain.Installer.
func (l Local) Install(ctx context.Context, name, prefix string) error {
	src, err := filepath.Abs(l.Source)
	if err != nil {
		return errs.Filesystem("resolve source", err)
	}
	info, err := os.Stat(src)
	if err != nil {
		return errs.Filesystem("stat source", err)
	}
	if !info.IsDir() {
		return errs.Configuration("'%s' is not a directory", l.Source)
	}

	if l.Link {
		notify.Verbosef(sink(l.Sink), "linking toolchain '%s' to %s", name, src)
		if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
			return errs.Filesystem("prepare toolchains dir", err)
		}
		if err := os.RemoveAll(prefix); err != nil {
			return errs.Filesystem("replace toolchain", err)
		}
		if err := os.Symlink(src, prefix); err != nil {
			return errs.Filesystem("link toolchain", err)
		}
		return nil
	}

	notify.Verbosef(sink(l.Sink), "copying toolchain '%s' from %s", name, src)
	return stage(prefix, func(dir string) error {
		return copyTree(ctx, src, dir)
	})
}

// Archives installs a toolchain by extracting one or more installer archives
// into the prefix, in order.
type Archives struct {
	Paths []string
	Sink  notify.Sink
}

// Install implements toolchain.Installer.
func (a Archives) Install(ctx context.Context, name, prefix string) error {
	if len(a.Paths) == 0 {
		return errs.Configuration("no installers given for toolchain '%s'", name)
	}
	return stage(prefix, func(dir string) error {
		for _, p := range a.Paths {
			if err := ctx.Err(); err != nil {
				return err
			}
			notify.Verbosef(sink(a.Sink), "extracting installer %s", p)
			if err := extractInto(p, dir); err != nil {
				return err
			}
		}
		return nil
	})
}

// Dist installs a toolchain by fetching its archive from a distribution root,
// which may be a local directory, a file:// URL or an http(s) URL.
type Dist struct {
	Root         string
	DownloadsDir string
	Client       *http.Client
	Sink         notify.Sink
}

// ArtifactName returns the archive file name for a toolchain on this host.
func ArtifactName(name string) string {
	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("%s-%s-%s%s", name, runtime.GOOS, runtime.GOARCH, ext)
}

// Install implements toolchain.Installer.
func (d Dist) Install(ctx context.Context, name, prefix string) error {
	if strings.TrimSpace(d.Root) == "" {
		return errs.Configuration("no distribution root configured")
	}
	artifact := ArtifactName(name)

	archivePath, checksum, err := d.locate(ctx, artifact)
	if err != nil {
		return err
	}
	if checksum != "" {
		ok, err := verifyChecksum(archivePath, checksum)
		if err != nil {
			return errs.Filesystem("verify checksum", err)
		}
		if !ok {
			return errs.Configuration("checksum mismatch for %s", artifact)
		}
		notify.Verbosef(sink(d.Sink), "verified checksum for %s", artifact)
	}

	notify.Infof(sink(d.Sink), "installing toolchain '%s'", name)
	return stage(prefix, func(dir string) error {
		return extractInto(archivePath, dir)
	})
}

// locate returns a local path to the artifact and its expected checksum, if
// the root publishes one.
func (d Dist) locate(ctx context.Context, artifact string) (string, string, error) {
	root := d.Root
	if u, err := url.Parse(root); err == nil {
		switch u.Scheme {
		case "http", "https":
			return d.download(ctx, strings.TrimSuffix(root, "/")+"/"+artifact)
		case "file":
			root = filepath.FromSlash(u.Path)
		}
	}

	local := filepath.Join(root, artifact)
	if _, err := os.Stat(local); err != nil {
		if os.IsNotExist(err) {
			return "", "", errs.Configuration("no installer for this platform at %s", local)
		}
		return "", "", errs.Filesystem("stat installer", err)
	}
	sum := ""
	if data, err := os.ReadFile(local + ".sha256"); err == nil {
		sum = parseChecksum(string(data))
	} else if !os.IsNotExist(err) {
		return "", "", errs.Filesystem("read checksum", err)
	}
	return local, sum, nil
}

func (d Dist) download(ctx context.Context, artifactURL string) (string, string, error) {
	client := d.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	downloads := d.DownloadsDir
	if downloads == "" {
		downloads = os.TempDir()
	}

	dest := filepath.Join(downloads, baseName(artifactURL))
	notify.Verbosef(sink(d.Sink), "downloading %s", artifactURL)
	if err := downloadArtifact(ctx, client, dest, artifactURL); err != nil {
		return "", "", errs.Wrap(errs.ErrFilesystem, "download installer", err)
	}
	text, ok, err := fetchText(ctx, client, artifactURL+".sha256")
	if err != nil {
		return "", "", errs.Wrap(errs.ErrFilesystem, "download checksum", err)
	}
	if !ok {
		return dest, "", nil
	}
	return dest, parseChecksum(text), nil
}

func baseName(u string) string {
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}

func extractInto(archivePath, dir string) error {
	if err := extractArchive(archivePath, dir); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "extract "+filepath.Base(archivePath), err)
	}
	return nil
}

// stage fills a temp directory beside prefix and commits it by rename, so a
// failed install never leaves a half-populated prefix behind.
func stage(prefix string, fill func(dir string) error) error {
	parent := filepath.Dir(prefix)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return errs.Filesystem("prepare toolchains dir", err)
	}
	tmpDir, err := os.MkdirTemp(parent, "."+filepath.Base(prefix)+"-tmp-")
	if err != nil {
		return errs.Filesystem("create temp dir", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	if err := fill(tmpDir); err != nil {
		return err
	}

	if err := os.RemoveAll(prefix); err != nil {
		return errs.Filesystem("replace toolchain", err)
	}
	if err := os.Rename(contentRoot(tmpDir), prefix); err != nil {
		return errs.Filesystem("commit toolchain", err)
	}
	return nil
}

func copyTree(ctx context.Context, src, dest string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errs.Filesystem("walk source", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return errs.Filesystem("walk source", err)
		}
		target := filepath.Join(dest, rel)

		switch {
		case d.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errs.Filesystem("create dir", err)
			}
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(p)
			if err != nil {
				return errs.Filesystem("read link", err)
			}
			if err := os.Symlink(link, target); err != nil {
				return errs.Filesystem("create link", err)
			}
		default:
			info, err := d.Info()
			if err != nil {
				return errs.Filesystem("stat file", err)
			}
			if err := copyFile(p, target, info.Mode().Perm()); err != nil {
				return errs.Filesystem("copy "+rel, err)
			}
		}
		return nil
	})
}

func sink(s notify.Sink) notify.Sink {
	if s == nil {
		return notify.Discard
	}
	return s
}
