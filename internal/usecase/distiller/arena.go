package distiller

import (
	"sync"

	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

// Arena maps the indices of the latest view to locators. It is replaced
// wholesale on every distillation.
type Arena struct {
	mu       sync.RWMutex
	doc      *dom.Document
	locators []string
}

func (a *Arena) reset(doc *dom.Document, locators []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.doc = doc
	a.locators = locators
}

func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.locators)
}

// Resolve returns the locator for index and checks that it still matches
// exactly one node of the snapshot it was built from.
func (a *Arena) Resolve(index int) (string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if index < 0 || index >= len(a.locators) {
		return "", entity.NewActionError(entity.CategoryElementNotFound,
			"index %d is not in the current view (%d elements)", index, len(a.locators))
	}
	loc := a.locators[index]
	if loc == "" {
		return "", entity.NewActionError(entity.CategoryElementNotFound, "index %d has no locator", index)
	}
	if a.doc != nil && len(a.doc.Select(loc)) != 1 {
		return "", entity.NewActionError(entity.CategoryElementNotFound, "locator %q no longer matches", loc)
	}
	return loc, nil
}
