package dashboard

import "sync"

// view tracks one refresh stream. Each refresh gets a monotonic
// sequence number at issue time; a result commits only while its
// sequence is still the latest issued, so a slow response can never
// overwrite a fresher one.
type view[T any] struct {
	mu      sync.Mutex
	issued  uint64
	current T
	have    bool
}

func (v *view[T]) begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	return v.issued
}

func (v *view[T]) commit(seq uint64, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if seq != v.issued {
		return false
	}
	v.current = value
	v.have = true
	return true
}

func (v *view[T]) value() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.have
}
