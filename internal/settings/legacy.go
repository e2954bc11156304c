package settings

import (
	"bufio"
	"context"
	"errors"
	"os"
	"strings"

	"multirust/internal/errs"
	"multirust/internal/notify"
	"multirust/internal/paths"
)

// LegacyMetadataVersion is the version written by the flat-file layout.
const LegacyMetadataVersion = "1"

// CurrentVersion reports the schema version found on disk. A home holding
// neither settings.toml nor a legacy version file reports the current version.
func CurrentVersion(layout paths.Layout, store *Store) (string, error) {
	exists, err := store.Exists()
	if err != nil {
		return "", errs.Filesystem("stat settings", err)
	}
	if exists {
		st, err := store.Load()
		if err != nil {
			return "", err
		}
		return st.Version, nil
	}

	data, err := os.ReadFile(layout.LegacyVersionFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return MetadataVersion, nil
		}
		return "", errs.Filesystem("read legacy version", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Upgrade converts the legacy flat-file layout into settings.toml. It returns
// false when there was nothing to migrate.
func Upgrade(ctx context.Context, layout paths.Layout, store *Store, sink notify.Sink) (bool, error) {
	version, err := CurrentVersion(layout, store)
	if err != nil {
		return false, err
	}
	switch version {
	case MetadataVersion:
		notify.Infof(sink, "metadata is up to date (version %s)", MetadataVersion)
		return false, nil
	case LegacyMetadataVersion:
	default:
		return false, errs.Detail(errs.ErrMetadataVersion,
			"unknown metadata version '%s'; run `multirust delete-data` to start over", version)
	}

	def, err := readLegacyDefault(layout.LegacyDefaultFile)
	if err != nil {
		return false, err
	}
	overrides, err := readLegacyOverrides(layout.LegacyOverridesFile)
	if err != nil {
		return false, err
	}

	err = store.Update(ctx, func(st *Settings) error {
		st.Version = MetadataVersion
		if st.DefaultToolchain == "" {
			st.DefaultToolchain = def
		}
		for dir, o := range overrides {
			if _, ok := st.Overrides[dir]; !ok {
				st.Overrides[dir] = o
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	for _, f := range []string{layout.LegacyDefaultFile, layout.LegacyOverridesFile, layout.LegacyVersionFile} {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return true, errs.Filesystem("remove legacy file", err)
		}
	}
	notify.Infof(sink, "upgraded metadata from version %s to %s (%d overrides)",
		LegacyMetadataVersion, MetadataVersion, len(overrides))
	return true, nil
}

func readLegacyDefault(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", errs.Filesystem("read legacy default", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Legacy override lines are "<dir>;<toolchain>".
func readLegacyOverrides(path string) (map[string]Override, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]Override{}, nil
		}
		return nil, errs.Filesystem("read legacy overrides", err)
	}
	defer f.Close()

	out := map[string]Override{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		idx := strings.LastIndex(line, ";")
		if idx <= 0 || idx == len(line)-1 {
			continue
		}
		dir, name := line[:idx], line[idx+1:]
		out[key(dir)] = Override{Toolchain: name, Reason: "directory override (migrated)"}
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.Filesystem("scan legacy overrides", err)
	}
	return out, nil
}
