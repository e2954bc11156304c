package pathreg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"multirust/internal/errs"
	"multirust/internal/notify"
)

const (
	blockStart = "# >>> multirust >>>"
	blockEnd   = "# <<< multirust <<<"
)

// Profile registers the directory through an export line in a POSIX shell
// profile. The line lives in a marked block that is rewritten in place, so
// registering again never duplicates it.
type Profile struct {
	Path string
	Sink notify.Sink
}

var _ Unregisterer = (*Profile)(nil)

// ExportLine returns the shell statement that prepends dir to PATH.
func ExportLine(dir string) (string, error) {
	quoted, err := syntax.Quote(dir, syntax.LangPOSIX)
	if err != nil {
		return "", errs.Configuration("cannot quote '%s' for the shell profile: %v", dir, err)
	}
	return "export PATH=" + quoted + `":$PATH"`, nil
}

// Register writes or refreshes the managed block.
func (p *Profile) Register(dir string) error {
	line, err := ExportLine(dir)
	if err != nil {
		return err
	}
	existing, err := p.read()
	if err != nil {
		return err
	}
	block := blockStart + "\n" + line + "\n" + blockEnd + "\n"

	body, found := replaceBlock(existing, block)
	if !found {
		body = existing
		if body != "" && !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		if body != "" {
			body += "\n"
		}
		body += block
	}
	if body == existing {
		notify.Verbosef(p.sink(), "%s already adds %s to PATH", p.Path, dir)
		return nil
	}
	if err := p.write(body); err != nil {
		return err
	}
	notify.Printf(p.sink(), "'%s' has been updated. You will need to start a new login shell for changes to take effect.", p.Path)
	return nil
}

// Unregister removes the managed block, if present.
func (p *Profile) Unregister() error {
	existing, err := p.read()
	if err != nil {
		return err
	}
	body, found := replaceBlock(existing, "")
	if !found {
		return nil
	}
	if err := p.write(body); err != nil {
		return err
	}
	notify.Infof(p.sink(), "removed multirust from %s", p.Path)
	return nil
}

func (p *Profile) read() (string, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errs.Permission(fmt.Sprintf("read %s", p.Path), err)
	}
	return string(data), nil
}

// target follows p.Path through symlinks so a linked profile is updated in
// place and the link itself survives.
func (p *Profile) target() string {
	if resolved, err := filepath.EvalSymlinks(p.Path); err == nil {
		return resolved
	}
	if dest, err := os.Readlink(p.Path); err == nil {
		if !filepath.IsAbs(dest) {
			dest = filepath.Join(filepath.Dir(p.Path), dest)
		}
		return dest
	}
	return p.Path
}

func (p *Profile) write(body string) error {
	path := p.target()
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".profile-*")
	if err != nil {
		return errs.Permission(fmt.Sprintf("write %s", p.Path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	_, err = tmp.WriteString(body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmp.Name(), mode)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), path)
	}
	if err != nil {
		return errs.Permission(fmt.Sprintf("write %s", path), err)
	}
	return nil
}

func (p *Profile) sink() notify.Sink {
	if p.Sink == nil {
		return notify.Discard
	}
	return p.Sink
}

// replaceBlock swaps the managed block in body for block. An empty block
// deletes it.
func replaceBlock(body, block string) (string, bool) {
	start := strings.Index(body, blockStart)
	if start < 0 {
		return body, false
	}
	rel := strings.Index(body[start:], blockEnd)
	if rel < 0 {
		return body, false
	}
	end := start + rel + len(blockEnd)
	if end < len(body) && body[end] == '\n' {
		end++
	}
	head := body[:start]
	// Drop the blank separator Register put before the block.
	if block == "" && strings.HasSuffix(head, "\n\n") {
		head = head[:len(head)-1]
	}
	return head + block + body[end:], true
}
