package objects

import (
	"oss-manager/core/catalog"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates the objects feature. A nil store disables it.
func NewFeature(store Store, cat *catalog.Catalog, logger *zap.Logger, opts ...Option) *Feature {
	if store == nil {
		return &Feature{}
	}
	svc := NewService(store, cat, logger, opts...)
	return &Feature{service: svc, handler: NewHandler(svc)}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "objects"
}

// IsEnabled reports whether a storage backend is configured.
func (f *Feature) IsEnabled() bool {
	return f.service != nil
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}
