package notify

import "sync"

// Entry is one report captured by a Recorder.
type Entry struct {
	Level Level
	Msg   string
}

// Recorder keeps every report in memory. Tests use it to assert on what a
// component announced.
type Recorder struct {
	mu      sync.Mutex
	Entries []Entry
}

// Report implements Sink.
func (r *Recorder) Report(level Level, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Entries = append(r.Entries, Entry{Level: level, Msg: msg})
}

// Messages returns the messages reported at level.
func (r *Recorder) Messages(level Level) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.Entries {
		if e.Level == level {
			out = append(out, e.Msg)
		}
	}
	return out
}
