package cmd

import (
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"oss-manager/core/config"
	"oss-manager/core/loader"
	"oss-manager/core/logger"
	"oss-manager/core/metrics"
	"oss-manager/core/middleware/auth"
	"oss-manager/core/middleware/rayid"
	"oss-manager/core/oss"
	"oss-manager/core/storage"
	"oss-manager/feature/health"
	"oss-manager/feature/objects"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "oss-manager/docs/swagger"
)

// @title OSS Manager API
// @version 1.0
// @description API for managing buckets and objects in S3-compatible object storage.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the OSS manager server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		var (
			mtr      *metrics.Metrics
			ossOpts  []oss.Option
			skipAuth = []string{"/swagger", "/health"}
		)
		if cfg.Metrics.Enabled {
			mtr = metrics.New(cfg.Metrics.Namespace)
			ossOpts = append(ossOpts, oss.WithStorageWrapper(func(c storage.Client) storage.Client {
				return metrics.InstrumentStorage(c, mtr)
			}))
			skipAuth = append(skipAuth, cfg.Metrics.Route())
		}

		// Storage is optional: a disabled section leaves the objects feature unloaded.
		var (
			store   objects.Store
			checker health.BucketChecker
		)
		adapter, err := oss.NewFromConfig(cfg.Storage, logg, ossOpts...)
		switch {
		case errors.Is(err, oss.ErrDisabled):
			logg.Warn("Storage is disabled, object routes will not be served")
		case err != nil:
			logg.Fatal("Failed to create storage client", zap.Error(err))
		default:
			store = adapter
			checker = adapter.Strict()
		}

		db, cat := openCatalog(cfg.Database, logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             cfg.Server.BodyLimit(),
		})

		mgr := loader.NewManager()
		mgr.Register(health.NewFeature(checker, cfg.Storage.DefaultBucket, db, logg))
		mgr.Register(objects.NewFeature(store, cat, logg,
			objects.WithReconcileCacheTTL(cfg.Reconcile.CacheTTL())))

		// RayID must be first to trace everything.
		app.Use(rayid.New())

		if mtr != nil {
			app.Use(mtr.Middleware())
			app.Get(cfg.Metrics.Route(), mtr.Handler())
		}

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey, Skip: skipAuth}))

		loaded, err := mgr.LoadAll(app)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}
		logg.Info("Features loaded", zap.Strings("features", loaded))

		go func() {
			logg.Info("Starting server", zap.String("address", cfg.Server.Address()))
			if err := app.Listen(cfg.Server.Address()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
