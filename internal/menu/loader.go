package menu

import (
	"context"
	"errors"
	"sync"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/backend"
)

// ErrAlreadyLoaded is returned by a second call to Load. The menu is fetched
// once per process; restarting is the only way to refresh it.
var ErrAlreadyLoaded = errors.New("menu already loaded")

// Displayed categories. Matching is exact and case sensitive; items in any
// other category are not shown.
const (
	CategoryAppetizer = "appetizer"
	CategoryEntree    = "entree"
	CategoryDessert   = "dessert"
)

const defaultLoadError = "Failed to load menu"

// Section is one titled table of the menu.
type Section struct {
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Items    []backend.MenuItem `json:"items"`
}

var sections = []struct {
	title    string
	category string
}{
	{"Appetizers", CategoryAppetizer},
	{"Entrees", CategoryEntree},
	{"Desserts", CategoryDessert},
}

// Loader fetches the menu once and partitions it into the displayed sections.
type Loader struct {
	client backend.MenuClient
	logger apt.Logger

	mu      sync.RWMutex
	started bool
	loading bool
	closed  bool
	errMsg  string
	items   []backend.MenuItem
}

func NewLoader(client backend.MenuClient, logger apt.Logger) *Loader {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &Loader{
		client: client,
		logger: logger,
		items:  []backend.MenuItem{},
	}
}

// Load fetches the menu. On failure the loader keeps an error message and an
// empty list, never a partial one.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyLoaded
	}
	l.started = true
	l.loading = true
	l.errMsg = ""
	l.mu.Unlock()

	items, err := l.client.ListMenu(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.logger.Debug("discarding menu response after close")
		return nil
	}
	l.loading = false

	if err != nil {
		l.logger.Error("menu load failed", "error", err)
		l.items = []backend.MenuItem{}
		l.errMsg = loadErrorMessage(err)
		return err
	}

	if items == nil {
		items = []backend.MenuItem{}
	}
	l.items = items
	l.logger.Info("menu loaded", "items", len(items))
	return nil
}

// Close stops the loader from applying a response that is still in flight.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

// Items returns every menu item, including those in undisplayed categories.
func (l *Loader) Items() []backend.MenuItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]backend.MenuItem, len(l.items))
	copy(out, l.items)
	return out
}

// Find looks a menu item up by identifier.
func (l *Loader) Find(id string) (backend.MenuItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.items {
		if item.ID == id {
			return item, true
		}
	}
	return backend.MenuItem{}, false
}

// Partition splits items into the displayed sections by exact category match.
func Partition(items []backend.MenuItem) []Section {
	out := make([]Section, 0, len(sections))
	for _, s := range sections {
		section := Section{Title: s.title, Category: s.category, Items: []backend.MenuItem{}}
		for _, item := range items {
			if item.Category == s.category {
				section.Items = append(section.Items, item)
			}
		}
		out = append(out, section)
	}
	return out
}

func loadErrorMessage(err error) string {
	var be *backend.Error
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	if err.Error() != "" {
		return err.Error()
	}
	return defaultLoadError
}
