package store

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
)

// Snapshot is the full contents of a collection at one point in time.
type Snapshot struct {
	Collection string
	Docs       []Document
	Err        error
}

// Subscription delivers snapshots until Close is called or its context ends.
type Subscription struct {
	C <-chan Snapshot

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops polling and waits for the poller to exit. Safe to call twice.
func (sub *Subscription) Close() {
	sub.once.Do(func() {
		sub.cancel()
		<-sub.done
	})
}

// Subscribe polls a collection every interval. The first snapshot is sent
// right away; later ones only when a document was added, removed or updated.
// A slow reader only ever sees the latest snapshot.
func (s *Store) Subscribe(ctx context.Context, collection string, interval time.Duration, order ...OrderBy) *Subscription {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan Snapshot, 1)
	sub := &Subscription{C: ch, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastKey string
		first := true
		for {
			docs, err := s.GetAll(ctx, collection, order...)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Printf("Error polling %s: %v", collection, err)
			}
			key := fingerprint(docs)
			if err != nil || first || key != lastKey {
				first = false
				lastKey = key
				publish(ch, Snapshot{Collection: collection, Docs: docs, Err: err})
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return sub
}

// publish replaces any unread snapshot with snap.
func publish(ch chan Snapshot, snap Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

func fingerprint(docs []Document) string {
	var b strings.Builder
	for _, d := range docs {
		b.WriteString(d.ID)
		b.WriteByte('@')
		b.WriteString(formatTime(d.UpdatedAt))
		b.WriteByte(';')
	}
	return b.String()
}
