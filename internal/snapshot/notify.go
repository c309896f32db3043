package snapshot

import "sync"

type subCh = chan string // carries new ETags

var (
	mu   sync.Mutex
	subs = make(map[subCh]struct{})
)

// Subscribe registers a listener for snapshot publications and returns its
// channel plus an unsubscribe func. The channel carries the new ETag.
func Subscribe() (subCh, func()) {
	ch := make(subCh, 1)
	mu.Lock()
	subs[ch] = struct{}{}
	mu.Unlock()

	unsub := func() {
		mu.Lock()
		delete(subs, ch)
		close(ch)
		mu.Unlock()
	}
	return ch, unsub
}

// publishUpdate notifies all listeners without blocking; a slow listener
// misses the tick instead of stalling publication.
func publishUpdate(etag string) {
	mu.Lock()
	for ch := range subs {
		select {
		case ch <- etag:
		default:
		}
	}
	mu.Unlock()
}
