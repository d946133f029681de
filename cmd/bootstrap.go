package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"oss-manager/core/catalog"
	"oss-manager/core/config"
	"oss-manager/core/database"
	"oss-manager/core/logger"
	"oss-manager/core/oss"
	"oss-manager/feature/objects"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// session bundles what every storage command needs.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	service *objects.Service
}

// openSession loads the configuration and builds the storage facade. The
// catalog is attached only when withCatalog is set and the database is reachable.
func openSession(withCatalog bool) (*session, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	adapter, err := oss.NewFromConfig(cfg.Storage, logg)
	if errors.Is(err, oss.ErrDisabled) {
		return nil, fmt.Errorf("storage is disabled (STORAGE_ENABLED=false)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var cat *catalog.Catalog
	if withCatalog {
		_, cat = openCatalog(cfg.Database, logg)
	}

	return &session{
		cfg:     cfg,
		logger:  logg,
		service: objects.NewService(adapter, cat, logg, objects.WithReconcileCacheTTL(cfg.Reconcile.CacheTTL())),
	}, nil
}

// openCatalog connects the optional catalog database. Failures are logged and
// leave the catalog disabled.
func openCatalog(cfg database.Config, logg *zap.Logger) (*gorm.DB, *catalog.Catalog) {
	db, err := database.Connect(cfg)
	if errors.Is(err, database.ErrDisabled) {
		return nil, nil
	}
	if err != nil {
		logg.Warn("Optional catalog database connection failed", zap.Error(err))
		return nil, nil
	}

	cat := catalog.New(db)
	if err := cat.Migrate(); err != nil {
		logg.Warn("Catalog migration failed, catalog disabled", zap.Error(err))
		return db, nil
	}
	logg.Info("Connected to catalog database", zap.String("database", cfg.Name))
	return db, cat
}

// confirm asks for an interactive "yes" unless assumeYes is set.
func confirm(prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}

	fmt.Printf("%s Type 'yes' to confirm: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
