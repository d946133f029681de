package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"oss-manager/core/oss"
	"oss-manager/core/storage/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB creates a mock GORM DB whose pings are checked against expectations.
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing: true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}
	return gormDB, mock
}

func setupTestApp(svc *Service) *fiber.App {
	app := fiber.New()
	NewHandler(svc).RegisterRoutes(app)
	return app
}

func decodeReport(t *testing.T, app *fiber.App) (int, Report) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	var report Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	return resp.StatusCode, report
}

func TestHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "media").Return(true, nil)
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectPing()

		strict := oss.New(client, zap.NewNop()).Strict()
		status, report := decodeReport(t, setupTestApp(NewService(strict, "media", db, zap.NewNop())))

		assert.Equal(t, 200, status)
		assert.Equal(t, StatusOK, report.Status)
		assert.Equal(t, StatusOK, report.Storage.Status)
		assert.Equal(t, StatusOK, report.Catalog.Status)
	})

	t.Run("AllDisabled", func(t *testing.T) {
		status, report := decodeReport(t, setupTestApp(NewService(nil, "", nil, zap.NewNop())))

		assert.Equal(t, 200, status)
		assert.Equal(t, StatusDisabled, report.Storage.Status)
		assert.Equal(t, StatusDisabled, report.Catalog.Status)
	})

	t.Run("NoDefaultBucket", func(t *testing.T) {
		client := new(mocks.Client)
		strict := oss.New(client, zap.NewNop()).Strict()

		status, report := decodeReport(t, setupTestApp(NewService(strict, "", nil, zap.NewNop())))

		assert.Equal(t, 200, status)
		assert.Equal(t, StatusUnknown, report.Storage.Status)
		client.AssertNotCalled(t, "BucketExists", mock.Anything, mock.Anything)
	})

	t.Run("StorageUnreachable", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "media").Return(false, assert.AnError)
		strict := oss.New(client, zap.NewNop()).Strict()

		status, report := decodeReport(t, setupTestApp(NewService(strict, "media", nil, zap.NewNop())))

		assert.Equal(t, 503, status)
		assert.Equal(t, StatusError, report.Status)
		assert.Contains(t, report.Storage.Detail, assert.AnError.Error())
	})

	t.Run("BucketMissing", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", mock.Anything, "media").Return(false, nil)
		strict := oss.New(client, zap.NewNop()).Strict()

		status, report := decodeReport(t, setupTestApp(NewService(strict, "media", nil, zap.NewNop())))

		assert.Equal(t, 503, status)
		assert.Equal(t, StatusError, report.Storage.Status)
	})

	t.Run("CatalogDown", func(t *testing.T) {
		db, sqlMock := setupMockDB(t)
		sqlMock.ExpectPing().WillReturnError(assert.AnError)

		status, report := decodeReport(t, setupTestApp(NewService(nil, "", db, zap.NewNop())))

		assert.Equal(t, 503, status)
		assert.Equal(t, StatusError, report.Catalog.Status)
	})
}

func TestFeature(t *testing.T) {
	f := NewFeature(nil, "", nil, zap.NewNop())
	assert.Equal(t, "health", f.Name())
	assert.True(t, f.IsEnabled())
	assert.NoError(t, f.Load(fiber.New()))
}
