package settings

import (
	"context"
	"path/filepath"

	"multirust/internal/notify"
)

// OverrideDB maps exact directories to toolchain names.
type OverrideDB struct {
	store *Store
	sink  notify.Sink
}

// NewOverrideDB returns the override mapping persisted by store.
func NewOverrideDB(store *Store, sink notify.Sink) *OverrideDB {
	if sink == nil {
		sink = notify.Discard
	}
	return &OverrideDB{store: store, sink: sink}
}

func key(dir string) string {
	return filepath.Clean(dir)
}

// Set pins toolchain to dir, replacing any existing override for dir.
func (db *OverrideDB) Set(ctx context.Context, dir, toolchain, reason string) error {
	k := key(dir)
	err := db.store.Update(ctx, func(st *Settings) error {
		st.Overrides[k] = Override{Toolchain: toolchain, Reason: reason}
		return nil
	})
	if err != nil {
		return err
	}
	notify.Infof(db.sink, "override toolchain for '%s' set to '%s'", k, toolchain)
	return nil
}

// Find returns the override registered for exactly dir.
func (db *OverrideDB) Find(dir string) (Override, bool, error) {
	st, err := db.store.Load()
	if err != nil {
		return Override{}, false, err
	}
	o, ok := st.Overrides[key(dir)]
	return o, ok, nil
}

// Remove deletes the override for dir. A missing override is not an error;
// the returned flag reports whether one was removed.
func (db *OverrideDB) Remove(ctx context.Context, dir string) (bool, error) {
	k := key(dir)
	removed := false
	err := db.store.Update(ctx, func(st *Settings) error {
		if _, ok := st.Overrides[k]; ok {
			delete(st.Overrides, k)
			removed = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if removed {
		notify.Infof(db.sink, "override removed for '%s'", k)
	} else {
		notify.Infof(db.sink, "no override for directory '%s'", k)
	}
	return removed, nil
}

// List returns every override ordered by directory.
func (db *OverrideDB) List() ([]Entry, error) {
	st, err := db.store.Load()
	if err != nil {
		return nil, err
	}
	return st.SortedOverrides(), nil
}
