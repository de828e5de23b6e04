package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/rxsupply/backend/internal/domain/inventory"
	"github.com/rxsupply/backend/internal/domain/shared"
	"github.com/rxsupply/backend/internal/infrastructure/persistence/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newSQLiteDB opens an in-memory database with the lot schema
func newSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// newMockDB opens a postgres-dialect GORM DB backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d.UTC()
}

func dayPtr(s string) *time.Time {
	d := day(s)
	return &d
}

// seedSize inserts a product size with the given counter
func seedSize(t *testing.T, db *gorm.DB, stock int) *inventory.ProductSize {
	t.Helper()
	size := &inventory.ProductSize{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  uuid.New(),
		SizeName:   "30 tablets",
		SKU:        "SKU-" + uuid.NewString()[:8],
		Stock:      stock,
	}
	require.NoError(t, NewGormProductSizeRepository(db).Save(t.Context(), size))
	return size
}

// seedLot inserts an active lot for the size
func seedLot(t *testing.T, db *gorm.DB, size *inventory.ProductSize, lot string, available int, expiry *time.Time, received string) *inventory.Batch {
	t.Helper()
	b, err := inventory.NewBatch(inventory.NewBatchParams{
		ProductID:     size.ProductID,
		ProductSizeID: size.ID,
		BatchNumber:   lot,
		ExpiryDate:    expiry,
		Quantity:      available,
		ReceivedDate:  dayPtr(received),
	})
	require.NoError(t, err)
	require.NoError(t, NewGormBatchRepository(db).Save(t.Context(), b))
	return b
}
