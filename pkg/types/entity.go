package types

import "sync"

// base carries the immutable id and the lock guarding mutable fields.
type base struct {
	id int64

	mu   sync.RWMutex
	name string
}

// ID returns the service-local id.
func (b *base) ID() int64 {
	return b.id
}

// Name returns the display name.
func (b *base) Name() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.name
}

// SetName updates the display name in place.
func (b *base) SetName(name string) {
	b.mu.Lock()
	b.name = name
	b.mu.Unlock()
}

// trackList is an ordered, duplicate-free list of track back-references.
type trackList struct {
	mu     sync.RWMutex
	tracks []*Track
}

func (l *trackList) add(t *Track) {
	if t == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.tracks {
		if existing == t {
			return
		}
	}
	l.tracks = append(l.tracks, t)
}

func (l *trackList) snapshot() []*Track {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Track, len(l.tracks))
	copy(out, l.tracks)
	return out
}

func (l *trackList) contains(t *Track) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, existing := range l.tracks {
		if existing == t {
			return true
		}
	}
	return false
}
