package billing

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One in-memory database per test; a second connection would see an
	// empty schema.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

// setupConcurrentTestDB opens a file-backed database that allows several
// connections at once, for tests that exercise racing writers. Writers
// queue on the sqlite lock instead of failing thanks to busy_timeout.
func setupConcurrentTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "billing.db") +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, models.AutoMigrate(db))
	return db
}

func testPolicy() Policy {
	return Policy{DefaultCommissionPercent: 20, GroupSessionFee: 25}
}

func futureDate(daysAhead int) string {
	return time.Now().AddDate(0, 0, daysAhead).Format("2006-01-02")
}

func createPatient(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	patient := &models.User{
		Email:     "patient-" + time.Now().Format("150405.000000000") + "@example.com",
		FirstName: "Pat",
		LastName:  "Doe",
		Role:      models.RolePatient,
		Active:    true,
	}
	require.NoError(t, db.Create(patient).Error)
	return patient
}

func createDoctor(t *testing.T, db *gorm.DB, specialty string, fee float64) *models.User {
	t.Helper()
	doctor := &models.User{
		Email:     "doctor-" + specialty + "-" + time.Now().Format("150405.000000000") + "@example.com",
		FirstName: "Doc",
		LastName:  "Smith",
		Role:      models.RoleDoctor,
		Active:    true,
		Specialty: specialty,
		Fee:       fee,
	}
	require.NoError(t, db.Create(doctor).Error)
	return doctor
}

// serviceSpec describes one plan line item for test fixtures.
type serviceSpec struct {
	serviceType string
	sessions    int
	locked      bool
	gate        string
}

func createPlan(t *testing.T, db *gorm.DB, price float64, specs ...serviceSpec) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:                      "Test Plan",
		ProductType:               models.ProductSubscriptionPlan,
		Price:                     price,
		PlatformCommissionPercent: 20,
		Active:                    true,
	}
	require.NoError(t, db.Create(product).Error)

	for _, spec := range specs {
		gate := spec.gate
		if gate == "" {
			gate = models.UnlockGateNone
		}
		svc := &models.ProductService{
			ProductID:          product.ID,
			ServiceType:        spec.serviceType,
			SessionCount:       spec.sessions,
			IsLocked:           spec.locked,
			UnlockAfterService: gate,
		}
		require.NoError(t, db.Create(svc).Error)
	}

	require.NoError(t, db.Preload("Services").First(product, "id = ?", product.ID).Error)
	return product
}

// buyPlan runs the purchase fan-out for a patient and returns the purchase.
func buyPlan(t *testing.T, db *gorm.DB, patientID, productID string) *models.PatientPurchase {
	t.Helper()
	result, err := ConfirmPurchase(db, patientID, productID, "stripe")
	require.NoError(t, err)
	require.False(t, result.Replayed)

	var purchase models.PatientPurchase
	require.NoError(t, db.First(&purchase, "id = ?", result.PurchaseID).Error)
	return &purchase
}

func walletEntry(t *testing.T, db *gorm.DB, purchaseID, serviceType string) *models.WalletEntry {
	t.Helper()
	var entry models.WalletEntry
	err := db.Where("purchase_id = ? AND service_type = ?", purchaseID, serviceType).
		First(&entry).Error
	require.NoError(t, err)
	return &entry
}
