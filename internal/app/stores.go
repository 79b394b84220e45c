package app

import (
	"context"
	"fmt"

	"storefront/internal/config"
	"storefront/internal/domain/entities"
	"storefront/internal/domain/repositories"
	"storefront/internal/infrastructure/logger"
	"storefront/internal/infrastructure/memory"
	"storefront/internal/infrastructure/mongodb"
)

// Stores bundles the order and catalog repositories of the configured driver.
type Stores struct {
	Orders   repositories.OrderRepository
	Products repositories.ProductRepository

	upsert func(ctx context.Context, product *entities.Product) error
	close  func()
}

// OpenStores connects the configured driver. The catalog seed file is only
// applied to the memory driver; persistent stores are seeded with shopctl.
func OpenStores(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Stores, error) {
	var (
		stores *Stores
		err    error
	)

	switch cfg.Store.Driver {
	case config.StoreMemory:
		log.Warn("Using in-memory stores, data is lost on restart")
		stores = openMemoryStores()
	default:
		stores, err = openMongoStores(ctx, cfg.Mongo, log)
		if err != nil {
			return nil, err
		}
	}

	if err := stores.seedOnStartup(ctx, cfg.Store, log); err != nil {
		stores.Close()
		return nil, err
	}

	return stores, nil
}

func openMemoryStores() *Stores {
	products := memory.NewProductRepositoryMemory()
	return &Stores{
		Orders:   memory.NewOrderRepositoryMemory(),
		Products: products,
		upsert: func(_ context.Context, p *entities.Product) error {
			products.Upsert(p)
			return nil
		},
		close: func() {},
	}
}

func openMongoStores(ctx context.Context, cfg config.MongoConfig, log *logger.Logger) (*Stores, error) {
	log.Info("Connecting to MongoDB", "db", cfg.DB)

	client, err := mongodb.Connect(ctx, cfg.URI)
	if err != nil {
		log.Error("Failed to connect to MongoDB", "error", err)
		return nil, err
	}
	db := client.Database(cfg.DB)

	orders, err := mongodb.NewOrderRepositoryMongo(ctx, db, log)
	if err != nil {
		_ = mongodb.Disconnect(client)
		return nil, err
	}
	products, err := mongodb.NewProductRepositoryMongo(ctx, db, log)
	if err != nil {
		_ = mongodb.Disconnect(client)
		return nil, err
	}

	log.Info("Connected to MongoDB successfully")

	return &Stores{
		Orders:   orders,
		Products: products,
		upsert:   products.Upsert,
		close: func() {
			if err := mongodb.Disconnect(client); err != nil {
				log.Warn("Failed to disconnect from MongoDB", "error", err)
			}
		},
	}, nil
}

// seedOnStartup fills a fresh memory store from the seed file. Persistent
// stores keep their stock across restarts, so the file is not reapplied there.
func (s *Stores) seedOnStartup(ctx context.Context, cfg config.StoreConfig, log *logger.Logger) error {
	if cfg.CatalogSeedFile == "" {
		return nil
	}
	if cfg.Driver != config.StoreMemory {
		log.Warn("Ignoring catalog seed file for persistent store, run shopctl seed instead",
			"file", cfg.CatalogSeedFile,
			"driver", cfg.Driver)
		return nil
	}

	n, err := s.SeedCatalogFile(ctx, cfg.CatalogSeedFile)
	if err != nil {
		return err
	}
	log.Info("Catalog seeded", "file", cfg.CatalogSeedFile, "products", n)
	return nil
}

// SeedCatalogFile upserts every product listed in a catalog JSON file.
func (s *Stores) SeedCatalogFile(ctx context.Context, path string) (int, error) {
	products, err := memory.LoadProductsFile(path)
	if err != nil {
		return 0, err
	}
	if err := s.SeedCatalog(ctx, products); err != nil {
		return 0, err
	}
	return len(products), nil
}

// SeedCatalog inserts or updates products by id.
func (s *Stores) SeedCatalog(ctx context.Context, products []*entities.Product) error {
	for _, p := range products {
		if p.ID == "" {
			return fmt.Errorf("catalog entry %q has no id", p.Name)
		}
		if err := s.upsert(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *Stores) Close() {
	s.close()
}
