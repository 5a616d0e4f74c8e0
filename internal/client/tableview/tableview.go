// Package tableview holds the data-table presentation state: one table
// at a time, fetched in full, revealed page by page.
package tableview

import (
	"context"
	"fmt"
	"sync"
)

const DefaultPageSize = 100

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

type Fetcher interface {
	FetchTable(ctx context.Context, name string) ([]map[string]any, error)
}

// Model is the table client's state machine: Loading -> Ready | Error,
// re-entered whenever the requested table name changes. Fetches run on
// their own goroutine; a generation counter makes sure a slow response
// for an old table never overwrites the state of a newer request.
type Model struct {
	mu       sync.Mutex
	fetcher  Fetcher
	pageSize int

	table      string
	state      State
	rows       []map[string]any
	visible    int
	collapsed  bool
	errMsg     string
	generation uint64

	onChange func()
}

func NewModel(fetcher Fetcher, pageSize int, onChange func()) *Model {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &Model{
		fetcher:  fetcher,
		pageSize: pageSize,
		onChange: onChange,
	}
}

// SetTable requests rows for the named table. Setting the same name
// again is a no-op: only an identity change triggers a refetch.
func (m *Model) SetTable(ctx context.Context, name string) {
	m.mu.Lock()

	if name == m.table && m.state != StateIdle {
		m.mu.Unlock()
		return
	}

	m.table = name
	m.state = StateLoading
	m.errMsg = ""
	m.generation++
	gen := m.generation

	m.mu.Unlock()

	go func() {
		rows, err := m.fetcher.FetchTable(ctx, name)
		m.apply(gen, name, rows, err)
	}()
}

func (m *Model) apply(gen uint64, name string, rows []map[string]any, err error) {
	m.mu.Lock()

	// a newer request superseded this fetch; drop the response
	if gen != m.generation {
		m.mu.Unlock()
		return
	}

	if err != nil {
		m.state = StateError
		m.errMsg = fmt.Sprintf("Failed to load %s", name)
		m.rows = nil
		m.visible = 0
	} else {
		m.state = StateReady
		m.rows = rows
		m.visible = min(m.pageSize, len(rows))
	}

	m.mu.Unlock()

	if m.onChange != nil {
		m.onChange()
	}
}

// LoadMore reveals another page, clamped to the total row count.
func (m *Model) LoadMore() {
	m.mu.Lock()

	if m.state == StateReady {
		m.visible = min(m.visible+m.pageSize, len(m.rows))
	}

	m.mu.Unlock()
}

// ToggleCollapsed hides or shows the table without discarding rows
// and without refetching.
func (m *Model) ToggleCollapsed() {
	m.mu.Lock()
	m.collapsed = !m.collapsed
	m.mu.Unlock()
}

func (m *Model) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Model) Table() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.table
}

func (m *Model) Collapsed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.collapsed
}

func (m *Model) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errMsg
}

func (m *Model) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func (m *Model) VisibleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

// VisibleRows returns the revealed window, or nothing while collapsed.
func (m *Model) VisibleRows() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.collapsed {
		return nil
	}

	return m.rows[:m.visible]
}
