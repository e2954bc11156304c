//go:build windows

package pathreg

import (
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"multirust/internal/errs"
	"multirust/internal/notify"
)

func newPlatform(_ string, sink notify.Sink) Registrar {
	return &Registry{Sink: sink}
}

const (
	hwndBroadcast   = 0xffff
	wmSettingChange = 0x001A
	smtoAbortIfHung = 0x0002
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	procSendMessageTimeoutW = user32.NewProc("SendMessageTimeoutW")
)

// Registry registers the directory at the front of the current user's PATH
// in HKCU\Environment.
type Registry struct {
	Sink notify.Sink
}

// Register prepends dir to the persisted PATH unless it is already first,
// then tells running programs that the environment changed.
func (r *Registry) Register(dir string) error {
	key, err := registry.OpenKey(registry.CURRENT_USER, "Environment", registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return errs.Permission("open HKCU\\Environment", err)
	}
	defer key.Close()

	old, valType, err := key.GetStringValue("PATH")
	if err != nil && err != registry.ErrNotExist {
		return errs.Permission("read PATH", err)
	}
	if first, _, _ := strings.Cut(old, ";"); strings.EqualFold(strings.TrimRight(first, `\`), strings.TrimRight(dir, `\`)) {
		notify.Verbosef(r.sink(), "%s is already first on PATH", dir)
		return nil
	}

	updated := dir
	if old != "" {
		updated = dir + ";" + old
	}
	if valType == registry.EXPAND_SZ || old == "" {
		err = key.SetExpandStringValue("PATH", updated)
	} else {
		err = key.SetStringValue("PATH", updated)
	}
	if err != nil {
		return errs.Permission("write PATH", err)
	}

	broadcastEnvironmentChange()
	notify.Printf(r.sink(), "PATH has been updated. You may need to restart your shell for changes to take effect.")
	return nil
}

func (r *Registry) sink() notify.Sink {
	if r.Sink == nil {
		return notify.Discard
	}
	return r.Sink
}

// Best effort; programs that do not answer within five seconds are skipped.
func broadcastEnvironmentChange() {
	env, err := windows.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	_, _, _ = procSendMessageTimeoutW.Call(
		uintptr(hwndBroadcast),
		uintptr(wmSettingChange),
		0,
		uintptr(unsafe.Pointer(env)),
		uintptr(smtoAbortIfHung),
		uintptr(5000),
		uintptr(unsafe.Pointer(&result)),
	)
}

