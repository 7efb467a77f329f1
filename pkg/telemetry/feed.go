// Package telemetry exports peripheral readings: an in-process
// snapshot feed, an MQTT publisher with servo command intake, and the
// device identity the transport topics hang off.
package telemetry

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Snapshot is one exported reading from a peripheral driver.
type Snapshot struct {
	Device string          `json:"device"`
	At     time.Time       `json:"at"`
	Data   json.RawMessage `json:"data"`
}

// Feed fans reading snapshots out to subscribers and caches the
// latest snapshot per device. Posting never blocks: a subscriber
// whose buffer is full misses the snapshot.
type Feed struct {
	lock   sync.Mutex
	subs   map[*Subscription]struct{}
	latest map[string]Snapshot
}

// NewFeed creates a Feed.
func NewFeed() *Feed {
	return &Feed{
		subs:   make(map[*Subscription]struct{}),
		latest: make(map[string]Snapshot),
	}
}

// Post records a snapshot as the device's latest and fans it out.
func (f *Feed) Post(snap Snapshot) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.latest[snap.Device] = snap
	for sub := range f.subs {
		select {
		case sub.ch <- snap:
		default:
			glog.V(2).Infof("feed: subscriber lagging, dropped %s snapshot", snap.Device)
		}
	}
}

// Subscribe registers a subscriber with a receive buffer of buf
// snapshots.
func (f *Feed) Subscribe(buf int) *Subscription {
	sub := &Subscription{feed: f, ch: make(chan Snapshot, buf)}
	sub.C = sub.ch
	f.lock.Lock()
	f.subs[sub] = struct{}{}
	f.lock.Unlock()
	return sub
}

// Latest returns the freshest snapshot per device, ordered by device
// name.
func (f *Feed) Latest() []Snapshot {
	f.lock.Lock()
	snaps := make([]Snapshot, 0, len(f.latest))
	for _, s := range f.latest {
		snaps = append(snaps, s)
	}
	f.lock.Unlock()
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Device < snaps[j].Device })
	return snaps
}

// Subscription receives posted snapshots on C until closed.
type Subscription struct {
	C <-chan Snapshot

	feed *Feed
	ch   chan Snapshot
	once sync.Once
}

// Close implements io.Closer. C is closed and stops receiving.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.feed.lock.Lock()
		delete(s.feed.subs, s)
		s.feed.lock.Unlock()
		close(s.ch)
	})
	return nil
}
