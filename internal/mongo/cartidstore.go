package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/lastbite/internal/cart"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const stateCollection = "client_state"

type stateEntry struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CartIDStore persists the storefront's cart identifier in MongoDB. It
// implements cart.IDStore.
type CartIDStore struct {
	client     *mongo.Client
	db         *mongo.Database
	collection *mongo.Collection
	key        string
	logger     apt.Logger
	config     *apt.Config
}

var _ cart.IDStore = (*CartIDStore)(nil)

func NewCartIDStore(config *apt.Config, logger apt.Logger) *CartIDStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &CartIDStore{
		key:    config.GetStringOrDef("store.key", cart.DefaultStoreKey),
		logger: logger,
		config: config,
	}
}

// Start connects to MongoDB.
func (s *CartIDStore) Start(ctx context.Context) error {
	mongoURL := s.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := s.config.GetStringOrDef("db.mongo.name", "lastbite_storefront")

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	s.client = client
	s.db = client.Database(dbName)
	s.collection = s.db.Collection(stateCollection)

	s.logger.Infof("Connected to MongoDB: %s, database: %s, collection: %s", mongoURL, dbName, stateCollection)
	return nil
}

// Stop closes the MongoDB connection.
func (s *CartIDStore) Stop(ctx context.Context) error {
	if s.client != nil {
		if err := s.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		s.logger.Info("Disconnected from MongoDB")
	}
	return nil
}

func (s *CartIDStore) Load(ctx context.Context) (string, bool, error) {
	if s.collection == nil {
		return "", false, errors.New("cart id store not started")
	}

	var entry stateEntry
	err := s.collection.FindOne(ctx, bson.M{"_id": s.key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("could not load cart id: %w", err)
	}
	return entry.Value, entry.Value != "", nil
}

func (s *CartIDStore) Save(ctx context.Context, cartID string) error {
	if s.collection == nil {
		return errors.New("cart id store not started")
	}
	if cartID == "" {
		return errors.New("cart id is required")
	}

	filter := bson.M{"_id": s.key}
	update := bson.M{"$set": bson.M{"value": cartID, "updated_at": time.Now().UTC()}}
	if _, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("could not save cart id: %w", err)
	}
	return nil
}
