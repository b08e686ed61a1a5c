// Package queuesync implements the download queue state-synchronization
// engine: ordered keyed stores for active and completed downloads, a
// row-selection model, the configuration cache, the schedule cache, and
// the syncer that reconciles server push events into all of them.
package queuesync

import (
	"sync"

	"github.com/tubequeue/tubequeue/common"
)

// Store is an ordered keyed collection of download records. Insertion
// order is first-seen order; cosmetic field updates never move a record.
//
// Mutations are idempotent and safe under at-least-once event delivery:
// re-applying an added event merges fields into the existing record
// instead of duplicating the row.
//
// Two kinds of listeners can be registered. Structural listeners fire
// after an insertion, removal, or transfer; update listeners fire after a
// cosmetic merge on an existing record. Listeners always run after the
// mutation has completed, never mid-mutation.
type Store struct {
	mu    sync.Mutex
	order []string
	items map[string]*common.Download

	structural []func()
	updates    []func(id string)
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{items: make(map[string]*common.Download)}
}

// Subscribe registers fn to run after every structural change.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	s.structural = append(s.structural, fn)
	s.mu.Unlock()
}

// SubscribeUpdate registers fn to run after a cosmetic field update on an
// existing record. High-frequency progress ticks arrive here and only
// here, so structural subscribers are never churned by them.
func (s *Store) SubscribeUpdate(fn func(id string)) {
	s.mu.Lock()
	s.updates = append(s.updates, fn)
	s.mu.Unlock()
}

func (s *Store) notifyStructural() {
	for _, fn := range s.structural {
		fn()
	}
}

func (s *Store) notifyUpdate(id string) {
	for _, fn := range s.updates {
		fn(id)
	}
}

// merge copies incoming fields onto dst. String fields overwrite only
// when non-empty so a partial update cannot blank out a title or
// filename; numeric progress fields always overwrite because the most
// recent event wins. Checked and position are preserved.
func merge(dst, src *common.Download) {
	if src.URL != "" {
		dst.URL = src.URL
	}
	if src.Title != "" {
		dst.Title = src.Title
	}
	if src.Status != "" {
		dst.Status = src.Status
	}
	if src.Msg != "" {
		dst.Msg = src.Msg
	}
	if src.Filename != "" {
		dst.Filename = src.Filename
	}
	if src.Folder != "" {
		dst.Folder = src.Folder
	}
	if src.Quality != "" {
		dst.Quality = src.Quality
	}
	if src.Format != "" {
		dst.Format = src.Format
	}
	if src.CustomNamePrefix != "" {
		dst.CustomNamePrefix = src.CustomNamePrefix
	}
	dst.Percent = src.Percent
	dst.Speed = src.Speed
	dst.ETA = src.ETA
	if src.Size != 0 {
		dst.Size = src.Size
	}
}

// Upsert inserts d at the end if its id is absent, otherwise merges the
// incoming fields into the existing record in place, preserving its
// original position. It reports whether a new row was inserted.
func (s *Store) Upsert(d *common.Download) (inserted bool) {
	s.mu.Lock()
	existing, ok := s.items[d.ID]
	if ok {
		merge(existing, d)
	} else {
		cp := *d
		cp.Checked = false
		s.items[d.ID] = &cp
		s.order = append(s.order, d.ID)
	}
	s.mu.Unlock()

	if ok {
		s.notifyUpdate(d.ID)
		return false
	}
	s.notifyStructural()
	return true
}

func (s *Store) removeLocked(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Remove deletes the record with the given id. It reports whether the id
// was present.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	ok := s.removeLocked(id)
	s.mu.Unlock()
	if ok {
		s.notifyStructural()
	}
	return ok
}

// RemoveMany deletes all given ids and returns the ids actually removed.
// Absent ids are skipped, so duplicate deletion events are harmless.
func (s *Store) RemoveMany(ids []string) []string {
	s.mu.Lock()
	var removed []string
	for _, id := range ids {
		if s.removeLocked(id) {
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()
	if len(removed) > 0 {
		s.notifyStructural()
	}
	return removed
}

// FilterDelete removes every record matching pred and returns the removed
// ids in store order.
func (s *Store) FilterDelete(pred func(*common.Download) bool) []string {
	s.mu.Lock()
	var removed []string
	for _, id := range s.order {
		if pred(s.items[id]) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		s.removeLocked(id)
	}
	s.mu.Unlock()
	if len(removed) > 0 {
		s.notifyStructural()
	}
	return removed
}

// TransferTo moves the record with the given id into dst, merging latest
// in the incoming record's fields when it is non-nil. The move is
// exactly-once: when the id is no longer present here, nothing is
// transferred and false is returned, so a re-delivered completion event
// degrades to a plain merge on dst by the caller.
//
// The source's structural listeners fire only after the record has been
// upserted into dst, so a listener reading both stores never observes
// the id in neither.
func (s *Store) TransferTo(dst *Store, id string, latest *common.Download) bool {
	s.mu.Lock()
	d, ok := s.items[id]
	if ok {
		s.removeLocked(id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	if latest != nil {
		merge(d, latest)
	}
	dst.Upsert(d)
	s.notifyStructural()
	return true
}

// Has reports whether the id is present.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	_, ok := s.items[id]
	s.mu.Unlock()
	return ok
}

// Get returns a copy of the record with the given id.
func (s *Store) Get(id string) (common.Download, bool) {
	s.mu.Lock()
	d, ok := s.items[id]
	var cp common.Download
	if ok {
		cp = *d
	}
	s.mu.Unlock()
	return cp, ok
}

// Keys returns the current key set in insertion order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	s.mu.Unlock()
	return keys
}

// Items returns copies of all records in insertion order.
func (s *Store) Items() []common.Download {
	s.mu.Lock()
	items := make([]common.Download, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, *s.items[id])
	}
	s.mu.Unlock()
	return items
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	n := len(s.order)
	s.mu.Unlock()
	return n
}
