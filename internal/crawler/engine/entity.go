package engine

import (
	"sync"

	"edu-crawler/pkg/models"
)

type entityState int

const (
	stateDiscovered entityState = iota
	stateTabs
	stateFinalized
	stateFailed
)

func (s entityState) String() string {
	switch s {
	case stateDiscovered:
		return "discovered"
	case stateTabs:
		return "tab_pending"
	case stateFinalized:
		return "finalized"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// entity is the accumulation state of one EntityKey. Its mutex serializes
// every fold for that key.
type entity struct {
	mu      sync.Mutex
	key     models.EntityKey
	state   entityState
	record  *models.Record
	pending int
	// tabPages guards against a tab whose "load more" chain loops.
	tabPages map[string]struct{}
}

// markTabPage records a tab page URL and reports whether it is new.
// Callers hold mu.
func (e *entity) markTabPage(field, pageURL string) bool {
	k := field + "\x00" + pageURL
	if _, ok := e.tabPages[k]; ok {
		return false
	}
	e.tabPages[k] = struct{}{}
	return true
}

func (e *entity) terminal() bool {
	return e.state == stateFinalized || e.state == stateFailed
}

type entityTable struct {
	mu sync.Mutex
	m  map[models.EntityKey]*entity
}

func newEntityTable() *entityTable {
	return &entityTable{m: make(map[models.EntityKey]*entity)}
}

func (t *entityTable) add(key models.EntityKey) *entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	ent := &entity{key: key, tabPages: make(map[string]struct{})}
	t.m[key] = ent
	return ent
}

func (t *entityTable) get(key models.EntityKey) *entity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.m[key]
}

// unfinished counts entities that never reached a terminal state.
func (t *entityTable) unfinished() int {
	t.mu.Lock()
	entities := make([]*entity, 0, len(t.m))
	for _, ent := range t.m {
		entities = append(entities, ent)
	}
	t.mu.Unlock()

	n := 0
	for _, ent := range entities {
		ent.mu.Lock()
		if !ent.terminal() {
			n++
		}
		ent.mu.Unlock()
	}
	return n
}
