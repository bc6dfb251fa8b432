package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/straye-as/season-planning-api/internal/database"
	"github.com/straye-as/season-planning-api/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory sqlite database with the full schema.
// The pool is pinned to one connection so the database lives as long as the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err, "failed to open sqlite test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db), "failed to migrate test schema")

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Date returns midnight UTC of the given day
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Money parses a decimal literal and fails the test on error
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// CreateTestSeason inserts a season in the given status with matching workflow
// flags. The status is written directly, bypassing the workflow, so tests can
// start from any point of the lifecycle.
func CreateTestSeason(t *testing.T, db *gorm.DB, status domain.SeasonStatus) *domain.Season {
	t.Helper()

	season := &domain.Season{
		Code:      randomCode(),
		Name:      "Test Season " + string(status),
		StartDate: Date(2025, time.January, 1),
		EndDate:   Date(2025, time.June, 30),
		Status:    status,
		CreatedBy: "test-user",
	}
	require.NoError(t, db.Omit("Workflow").Create(season).Error)

	workflow := &domain.SeasonWorkflow{SeasonID: season.ID, UpdatedAt: time.Now()}
	workflow.Apply(domain.FlagsFor(status))
	require.NoError(t, db.Create(workflow).Error)
	season.Workflow = workflow

	return season
}

// CreateTestCluster inserts a cluster
func CreateTestCluster(t *testing.T, db *gorm.DB, name string) *domain.Cluster {
	t.Helper()
	cluster := &domain.Cluster{Name: name, Code: name}
	require.NoError(t, db.Omit("Locations").Create(cluster).Error)
	return cluster
}

// CreateTestLocation inserts an active store
func CreateTestLocation(t *testing.T, db *gorm.DB, name string) *domain.Location {
	t.Helper()
	location := &domain.Location{
		Code:     randomCode() + randomCode()[:7],
		Name:     name,
		Type:     domain.LocationTypeStore,
		City:     "Oslo",
		IsActive: true,
	}
	require.NoError(t, db.Omit("Cluster").Create(location).Error)
	return location
}

// AssignTestLocation links a location to a season
func AssignTestLocation(t *testing.T, db *gorm.DB, seasonID, locationID uuid.UUID) {
	t.Helper()
	require.NoError(t, db.Omit("Location").Create(&domain.SeasonLocation{
		SeasonID:   seasonID,
		LocationID: locationID,
	}).Error)
}

// CreateTestCategory inserts a root category
func CreateTestCategory(t *testing.T, db *gorm.DB, name string) *domain.Category {
	t.Helper()
	code := name + "-" + uuid.NewString()[:8]
	category := &domain.Category{Name: name, Code: &code}
	require.NoError(t, db.Create(category).Error)
	category.Path = category.ID.String()
	require.NoError(t, db.Save(category).Error)
	return category
}

// CreateTestOTBPlan inserts an OTB row with the given approved spend limit
func CreateTestOTBPlan(t *testing.T, db *gorm.DB, seasonID, locationID, categoryID uuid.UUID, month time.Time, limit string) *domain.OTBPlan {
	t.Helper()
	amount := Money(t, limit)
	plan := &domain.OTBPlan{
		SeasonID:            seasonID,
		LocationID:          locationID,
		CategoryID:          categoryID,
		Month:               month,
		PlannedSales:        amount,
		PlannedClosingStock: decimal.Zero,
		OpeningStock:        decimal.Zero,
		OnOrder:             decimal.Zero,
		ApprovedSpendLimit:  amount,
	}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

// CreateTestPurchaseOrder inserts a confirmed purchase order
func CreateTestPurchaseOrder(t *testing.T, db *gorm.DB, seasonID, locationID, categoryID uuid.UUID, orderDate time.Time, value string) *domain.PurchaseOrder {
	t.Helper()
	po := &domain.PurchaseOrder{
		PONumber:   "PO-TEST-" + uuid.NewString()[:8],
		SeasonID:   seasonID,
		LocationID: locationID,
		CategoryID: categoryID,
		POValue:    Money(t, value),
		Status:     domain.POStatusConfirmed,
		Source:     domain.POSourceAPI,
		OrderDate:  orderDate,
	}
	require.NoError(t, db.Omit("GRNs").Create(po).Error)
	return po
}

// CreateTestGRN inserts a goods-received note
func CreateTestGRN(t *testing.T, db *gorm.DB, poID uuid.UUID, date time.Time, value string) *domain.GRN {
	t.Helper()
	grn := &domain.GRN{POID: poID, GRNDate: date, ReceivedValue: Money(t, value)}
	require.NoError(t, db.Create(grn).Error)
	return grn
}

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomCode() string {
	id := uuid.New()
	b := make([]byte, 9)
	for i := range b {
		b[i] = codeAlphabet[int(id[i])%len(codeAlphabet)]
	}
	b[4] = '-'
	return string(b)
}
