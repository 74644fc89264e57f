package storefront

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/cart"
	"github.com/appetiteclub/lastbite/internal/mongo"
	"github.com/appetiteclub/lastbite/internal/postgres"
)

const (
	StoreDriverFile     = "file"
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Store is a cart id store with a lifecycle.
type Store interface {
	cart.IDStore
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type fileStore struct {
	*cart.FileStore
}

func (fileStore) Start(context.Context) error { return nil }
func (fileStore) Stop(context.Context) error  { return nil }

type memoryStore struct {
	*cart.MemoryStore
}

func (memoryStore) Start(context.Context) error { return nil }
func (memoryStore) Stop(context.Context) error  { return nil }

// NewStore builds the cart id store selected by store.driver.
func NewStore(config *apt.Config, logger apt.Logger) (Store, error) {
	driver := config.GetStringOrDef("store.driver", StoreDriverFile)
	key := config.GetStringOrDef("store.key", cart.DefaultStoreKey)

	switch driver {
	case StoreDriverFile:
		path := config.GetStringOrDef("store.file.path", "storefront-state.json")
		return fileStore{cart.NewFileStore(path, key, logger)}, nil
	case StoreDriverMongo:
		return mongo.NewCartIDStore(config, logger), nil
	case StoreDriverPostgres:
		return postgres.NewCartIDStore(config, logger), nil
	case StoreDriverMemory:
		return memoryStore{cart.NewMemoryStore()}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
