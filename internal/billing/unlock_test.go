package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/models"
)

func TestUnlockAfterGateUnlocksGatedEntries(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 300,
		serviceSpec{serviceType: models.ServiceNeurology, sessions: 1, locked: true, gate: models.UnlockGateNeurology},
		serviceSpec{serviceType: models.ServicePhysiotherapy, sessions: 3, locked: true, gate: models.UnlockGateNeurology},
	)
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	locked := walletEntry(t, db, purchase.ID, models.ServicePhysiotherapy)
	require.True(t, locked.IsLocked)
	require.Equal(t, 3, locked.RemainingSessions)

	require.NoError(t, UnlockAfterGate(db, patient.ID, &purchase.ID))

	unlocked := walletEntry(t, db, purchase.ID, models.ServicePhysiotherapy)
	assert.False(t, unlocked.IsLocked)
	// Unlocking never touches the session balance.
	assert.Equal(t, 3, unlocked.RemainingSessions)
}

func TestUnlockAfterGateSpansPurchases(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)

	gatedPlan := createPlan(t, db, 300,
		serviceSpec{serviceType: models.ServiceNeurology, sessions: 1, locked: true, gate: models.UnlockGateNeurology},
		serviceSpec{serviceType: models.ServicePsychology, sessions: 2, locked: true, gate: models.UnlockGateNeurology},
	)
	gatedPurchase := buyPlan(t, db, patient.ID, gatedPlan.ID)

	otherPlan := createPlan(t, db, 150,
		serviceSpec{serviceType: models.ServiceNutrition, sessions: 2, locked: true, gate: models.UnlockGateNeurology},
	)
	otherPurchase := buyPlan(t, db, patient.ID, otherPlan.ID)

	require.NoError(t, UnlockAfterGate(db, patient.ID, &gatedPurchase.ID))

	// The gating consultation unlocks the patient's whole wallet, not just
	// the purchase it was funded from.
	assert.False(t, walletEntry(t, db, gatedPurchase.ID, models.ServicePsychology).IsLocked)
	assert.False(t, walletEntry(t, db, otherPurchase.ID, models.ServiceNutrition).IsLocked)
}

func TestUnlockAfterGateLeavesOtherPatientsAlone(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	bystander := createPatient(t, db)

	plan := createPlan(t, db, 300,
		serviceSpec{serviceType: models.ServicePhysiotherapy, sessions: 3, locked: true, gate: models.UnlockGateNeurology},
	)
	patientPurchase := buyPlan(t, db, patient.ID, plan.ID)
	bystanderPurchase := buyPlan(t, db, bystander.ID, plan.ID)

	require.NoError(t, UnlockAfterGate(db, patient.ID, &patientPurchase.ID))

	assert.False(t, walletEntry(t, db, patientPurchase.ID, models.ServicePhysiotherapy).IsLocked)
	assert.True(t, walletEntry(t, db, bystanderPurchase.ID, models.ServicePhysiotherapy).IsLocked)
}

func TestUnlockAfterGateWithoutPurchaseStillUnlocksPatient(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 150,
		serviceSpec{serviceType: models.ServiceCoaching, sessions: 2, locked: true, gate: models.UnlockGateNeurology},
	)
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	// Paid neurology consultations carry no purchase link.
	require.NoError(t, UnlockAfterGate(db, patient.ID, nil))

	assert.False(t, walletEntry(t, db, purchase.ID, models.ServiceCoaching).IsLocked)
}
