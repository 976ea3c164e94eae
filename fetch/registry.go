package fetch

import "sync"

// Handle identifies an interceptor added with Use. Handles start at 1, grow
// monotonically and are never reused within one Registry.
type Handle int64

// RegistrationMode decides what Register does with an interceptor that is
// already registered.
type RegistrationMode int

const (
	// AllowDuplicates registers every call as a new chain position with its
	// own handle.
	AllowDuplicates RegistrationMode = iota
	// IgnoreDuplicates returns the existing handle when an equal interceptor
	// is already registered. Only comparable values (pointers, plain structs)
	// can be equal; func values always register.
	IgnoreDuplicates
)

// String returns the mode name.
func (m RegistrationMode) String() string {
	switch m {
	case AllowDuplicates:
		return "allow_duplicates"
	case IgnoreDuplicates:
		return "ignore_duplicates"
	default:
		return "unknown"
	}
}

// slot tags an entry as removable (with its handle) or fixed.
type slot struct {
	fixed  bool
	handle Handle
}

type entry struct {
	interceptor Interceptor
	slot        slot
}

// Registry is the ordered list of installed interceptors. Insertion order is
// execution order. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	mode    RegistrationMode
	entries []entry
	last    Handle
}

// NewRegistry creates an empty registry.
func NewRegistry(mode RegistrationMode) *Registry {
	return &Registry{mode: mode}
}

// RegisterInitial appends fixed entries that no handle can remove. Nil
// placeholders are skipped. Fixed entries always run before those added
// with Register, in the order given. It returns the number of entries added.
func (r *Registry) RegisterInitial(interceptors ...Interceptor) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	added := 0
	for _, i := range interceptors {
		if isNil(i) {
			continue
		}
		if r.mode == IgnoreDuplicates {
			if _, ok := r.find(i); ok {
				continue
			}
		}
		r.entries = r.insertFixed(entry{interceptor: i, slot: slot{fixed: true}})
		added++
	}
	return added
}

// insertFixed places e after the last fixed entry.
func (r *Registry) insertFixed(e entry) []entry {
	at := 0
	for at < len(r.entries) && r.entries[at].slot.fixed {
		at++
	}
	out := make([]entry, 0, len(r.entries)+1)
	out = append(out, r.entries[:at]...)
	out = append(out, e)
	return append(out, r.entries[at:]...)
}

// Register appends i and returns its handle. A nil interceptor registers
// nothing and yields the zero Handle, which is never issued.
func (r *Registry) Register(i Interceptor) Handle {
	if isNil(i) {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.mode == IgnoreDuplicates {
		if s, ok := r.find(i); ok {
			return s.handle
		}
	}

	r.last++
	r.entries = append(r.entries, entry{interceptor: i, slot: slot{handle: r.last}})
	return r.last
}

// find returns the slot of a registered interceptor equal to i.
func (r *Registry) find(i Interceptor) (slot, bool) {
	for _, e := range r.entries {
		if sameInterceptor(e.interceptor, i) {
			return e.slot, true
		}
	}
	return slot{}, false
}

// Eject removes the removable entry with handle h and reports whether one was
// removed. Unknown, already ejected and non-positive handles are ignored;
// fixed entries are never matched.
func (r *Registry) Eject(h Handle) bool {
	if h <= 0 {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for idx, e := range r.entries {
		if !e.slot.fixed && e.slot.handle == h {
			r.entries = append(r.entries[:idx:idx], r.entries[idx+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the interceptors in execution order. Later
// registry changes do not affect the returned slice.
func (r *Registry) Snapshot() []Interceptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Interceptor, len(r.entries))
	for idx, e := range r.entries {
		out[idx] = e.interceptor
	}
	return out
}

// Handles returns the handles of the removable entries in execution order.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Handle, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.slot.fixed {
			out = append(out, e.slot.handle)
		}
	}
	return out
}

// Len returns the number of installed interceptors, fixed ones included.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
