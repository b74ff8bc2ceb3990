package automod

import (
	"sync"
	"time"
)

// evidenceIDLimit caps how many recent event IDs are copied into evidence
// snapshots.
const evidenceIDLimit = 25

const (
	// logRetention is how long an idle key's log survives before the
	// cleanup pass reclaims it. Guild windows are measured in seconds, so
	// a log idle this long holds nothing a detector can still count.
	logRetention = 15 * time.Minute

	// logCleanupInterval is how often idle logs are reclaimed.
	logCleanupInterval = time.Minute
)

// userKey identifies per-user detector state inside one guild. Detector
// state never crosses guild boundaries.
type userKey struct {
	guildID uint64
	userID  uint64
}

// windowEntry is one recorded event in a rolling log. The hash field holds
// a content hash for message logs and a new-account marker for join logs.
type windowEntry struct {
	timestamp time.Time
	hash      uint64
	id        uint64
}

// windowLog is a single key's rolling event log. Eviction is lazy: expired
// entries are dropped whenever the log is touched, so idle keys cost no
// background work.
type windowLog struct {
	mu      sync.Mutex
	entries []windowEntry
}

// evictLocked drops entries older than cutoff. Entries are appended in
// time order, so everything before the first in-window entry goes.
func (l *windowLog) evictLocked(cutoff time.Time) {
	keep := 0
	for keep < len(l.entries) && l.entries[keep].timestamp.Before(cutoff) {
		keep++
	}

	switch {
	case keep == len(l.entries):
		// Fully idle; release the backing array instead of keeping the
		// high-water-mark capacity around
		l.entries = nil
	case keep > 0:
		l.entries = append(l.entries[:0], l.entries[keep:]...)
	}
}

// recordAndCount appends an entry, evicts anything outside the window and
// tallies the result in a single critical section: the in-window total, the
// number of entries whose hash matches the new entry, and the most recent
// entry IDs for evidence.
func (l *windowLog) recordAndCount(entry windowEntry, cutoff time.Time) (total, hashMatches int, ids []uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(cutoff)
	l.entries = append(l.entries, entry)

	total = len(l.entries)

	for _, e := range l.entries {
		if e.hash == entry.hash {
			hashMatches++
		}
	}

	start := len(l.entries) - evidenceIDLimit
	if start < 0 {
		start = 0
	}

	ids = make([]uint64, 0, len(l.entries)-start)
	for _, e := range l.entries[start:] {
		ids = append(ids, e.id)
	}

	return total, hashMatches, ids
}

// record appends an entry without tallying.
func (l *windowLog) record(entry windowEntry, cutoff time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(cutoff)
	l.entries = append(l.entries, entry)
}

// countSince returns the number of in-window entries.
func (l *windowLog) countSince(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(cutoff)

	return len(l.entries)
}

// countHashSince returns the number of in-window entries with the given hash.
func (l *windowLog) countHashSince(hash uint64, cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evictLocked(cutoff)

	count := 0

	for _, e := range l.entries {
		if e.hash == hash {
			count++
		}
	}

	return count
}

// keyedWindows maps keys to their rolling logs. The outer RWMutex guards
// only the map; each log carries its own lock, so callers touching
// different keys never serialize on each other.
type keyedWindows[K comparable] struct {
	mu   sync.RWMutex
	logs map[K]*windowLog
}

func newKeyedWindows[K comparable]() *keyedWindows[K] {
	w := &keyedWindows[K]{logs: make(map[K]*windowLog)}

	go w.cleanup()

	return w
}

// cleanup periodically reclaims idle keys so the map does not accumulate
// an entry for every key ever seen.
func (w *keyedWindows[K]) cleanup() {
	ticker := time.NewTicker(logCleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		w.reclaimIdle(time.Now().Add(-logRetention))
	}
}

// reclaimIdle deletes every log whose entries all predate cutoff. A caller
// already holding such a log can still record into it; that one entry is
// orphaned and the next event recreates the key, which is harmless at
// these retention spans.
func (w *keyedWindows[K]) reclaimIdle(cutoff time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for key, log := range w.logs {
		log.mu.Lock()
		log.evictLocked(cutoff)
		idle := len(log.entries) == 0
		log.mu.Unlock()

		if idle {
			delete(w.logs, key)
		}
	}
}

// get returns the log for key, creating it on first use.
func (w *keyedWindows[K]) get(key K) *windowLog {
	w.mu.RLock()
	log, ok := w.logs[key]
	w.mu.RUnlock()

	if ok {
		return log
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if log, ok = w.logs[key]; ok {
		return log
	}

	log = &windowLog{}
	w.logs[key] = log

	return log
}
