package queuesync

import "sync"

// Aggregate is the tri-state value of the master checkbox derived from a
// selection over a store.
type Aggregate int

const (
	// AggregateUnchecked means no row is selected.
	AggregateUnchecked Aggregate = iota
	// AggregateIndeterminate means some but not all rows are selected.
	AggregateIndeterminate
	// AggregateChecked means the store is non-empty and every row is selected.
	AggregateChecked
)

// String returns the aggregate name for logs and tests.
func (a Aggregate) String() string {
	switch a {
	case AggregateChecked:
		return "checked"
	case AggregateIndeterminate:
		return "indeterminate"
	default:
		return "unchecked"
	}
}

// KeySource is the view of a store a SelectionModel needs: the current
// key set in order.
type KeySource interface {
	Keys() []string
}

// SelectionModel tracks per-row boolean selection over a store's current
// key set. The selected set is always a subset of the store's keys;
// SelectionChanged prunes ids that have left the store.
//
// Recomputation is driven by structural store changes only. Cosmetic
// field updates never reach a SelectionModel, so progress ticks cannot
// churn selection state.
type SelectionModel struct {
	mu       sync.Mutex
	src      KeySource
	selected map[string]struct{}
	agg      Aggregate
}

// NewSelectionModel returns an empty selection over src. The caller is
// expected to wire SelectionChanged to the store's structural
// subscription so removals evict orphaned selections in the same
// operation.
func NewSelectionModel(src KeySource) *SelectionModel {
	return &SelectionModel{
		src:      src,
		selected: make(map[string]struct{}),
	}
}

// Bind subscribes the model to a store's structural changes.
func (m *SelectionModel) Bind(s *Store) {
	s.Subscribe(func() { m.SelectionChanged() })
}

func (m *SelectionModel) recomputeLocked() Aggregate {
	keys := m.src.Keys()
	// Evict ids no longer present in the store.
	present := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		present[k] = struct{}{}
	}
	for id := range m.selected {
		if _, ok := present[id]; !ok {
			delete(m.selected, id)
		}
	}
	switch {
	case len(m.selected) == 0:
		m.agg = AggregateUnchecked
	case len(m.selected) == len(keys):
		m.agg = AggregateChecked
	default:
		m.agg = AggregateIndeterminate
	}
	return m.agg
}

// SelectionChanged prunes the selected set against the store's current
// keys and recomputes the aggregate, returning the new value.
func (m *SelectionModel) SelectionChanged() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recomputeLocked()
}

// Toggle flips the selection state of a single row.
func (m *SelectionModel) Toggle(id string) Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.selected[id]; ok {
		delete(m.selected, id)
	} else {
		m.selected[id] = struct{}{}
	}
	return m.recomputeLocked()
}

// ToggleAll selects every row unless all are already selected, in which
// case it clears the selection.
func (m *SelectionModel) ToggleAll() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.src.Keys()
	if len(m.selected) == len(keys) && len(keys) > 0 {
		m.selected = make(map[string]struct{})
	} else {
		for _, k := range keys {
			m.selected[k] = struct{}{}
		}
	}
	return m.recomputeLocked()
}

// Clear empties the selection.
func (m *SelectionModel) Clear() {
	m.mu.Lock()
	m.selected = make(map[string]struct{})
	m.agg = AggregateUnchecked
	m.mu.Unlock()
}

// Aggregate returns the last computed aggregate.
func (m *SelectionModel) Aggregate() Aggregate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agg
}

// IsSelected reports whether the row is selected.
func (m *SelectionModel) IsSelected(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.selected[id]
	return ok
}

// Selected returns the selected ids in the store's order.
func (m *SelectionModel) Selected() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, k := range m.src.Keys() {
		if _, ok := m.selected[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// Count returns the number of selected rows.
func (m *SelectionModel) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selected)
}
