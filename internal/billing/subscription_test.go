package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/models"
)

func TestCancelPlanLocksWalletAndSetsStatus(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 150,
		serviceSpec{serviceType: models.ServicePsychology, sessions: 2},
		serviceSpec{serviceType: models.ServiceNutrition, sessions: 1},
	)
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	require.NoError(t, CancelPlan(db, patient.ID, purchase.ID))

	var reloaded models.PatientPurchase
	require.NoError(t, db.First(&reloaded, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.PurchaseCancelled, reloaded.Status)

	var entries []models.WalletEntry
	require.NoError(t, db.Where("purchase_id = ?", purchase.ID).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		assert.True(t, entry.IsLocked)
		// Cancellation locks entries but keeps their balance intact.
		assert.Greater(t, entry.RemainingSessions, 0)
	}
}

func TestCancelPlanRequiresOwnership(t *testing.T) {
	db := setupTestDB(t)
	owner := createPatient(t, db)
	intruder := createPatient(t, db)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	purchase := buyPlan(t, db, owner.ID, plan.ID)

	err := CancelPlan(db, intruder.ID, purchase.ID)
	assert.ErrorIs(t, err, ErrPurchaseNotActive)

	var reloaded models.PatientPurchase
	require.NoError(t, db.First(&reloaded, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.PurchaseActive, reloaded.Status)
}

func TestCancelPlanRejectsTerminalPurchase(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	require.NoError(t, CancelPlan(db, patient.ID, purchase.ID))
	err := CancelPlan(db, patient.ID, purchase.ID)
	assert.ErrorIs(t, err, ErrPurchaseNotActive)
}

func TestSubscriptionFlagClearedOnlyOnLastPlan(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	planA := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	planB := createPlan(t, db, 100, serviceSpec{serviceType: models.ServiceNutrition, sessions: 2})

	purchaseA := buyPlan(t, db, patient.ID, planA.ID)
	purchaseB := buyPlan(t, db, patient.ID, planB.ID)

	require.NoError(t, CancelPlan(db, patient.ID, purchaseA.ID))
	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", patient.ID).Error)
	assert.True(t, reloaded.Subscribed, "one active plan remains")

	require.NoError(t, CancelPlan(db, patient.ID, purchaseB.ID))
	require.NoError(t, db.First(&reloaded, "id = ?", patient.ID).Error)
	assert.False(t, reloaded.Subscribed)
}

func TestExpirePlan(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServiceCoaching, sessions: 3})
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	require.NoError(t, ExpirePlan(db, purchase.ID))

	var reloaded models.PatientPurchase
	require.NoError(t, db.First(&reloaded, "id = ?", purchase.ID).Error)
	assert.Equal(t, models.PurchaseExpired, reloaded.Status)

	entry := walletEntry(t, db, purchase.ID, models.ServiceCoaching)
	assert.True(t, entry.IsLocked)

	var user models.User
	require.NoError(t, db.First(&user, "id = ?", patient.ID).Error)
	assert.False(t, user.Subscribed)
}

func TestExpirePlanUnknownPurchase(t *testing.T) {
	db := setupTestDB(t)

	err := ExpirePlan(db, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrPurchaseNotActive)
}
