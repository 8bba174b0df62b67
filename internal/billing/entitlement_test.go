package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/models"
)

func TestServiceTypeForSpecialty(t *testing.T) {
	assert.Equal(t, models.ServiceNeurology, ServiceTypeForSpecialty("neurologist"))
	assert.Equal(t, models.ServicePhysiotherapy, ServiceTypeForSpecialty(" Physiotherapist "))
	assert.Equal(t, models.ServiceCoaching, ServiceTypeForSpecialty("coach"))
	assert.Empty(t, ServiceTypeForSpecialty("dentist"))
	assert.Empty(t, ServiceTypeForSpecialty(""))
}

func TestCanBookGroupSessionAlwaysAllowed(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)

	ent, err := CanBookService(db, patient.ID, models.ServiceGroupSession)
	require.NoError(t, err)
	assert.True(t, ent.CanBook)
	assert.Nil(t, ent.Entry)
}

func TestCanBookWithoutWalletSessions(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)

	ent, err := CanBookService(db, patient.ID, models.ServicePsychology)
	require.NoError(t, err)
	assert.False(t, ent.CanBook)
	assert.Equal(t, "no available sessions in wallet for this service", ent.Reason)
}

func TestCanBookWithUnlockedSession(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 100, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	ent, err := CanBookService(db, patient.ID, models.ServicePsychology)
	require.NoError(t, err)
	assert.True(t, ent.CanBook)
	require.NotNil(t, ent.Entry)
	assert.Equal(t, purchase.ID, ent.Entry.PurchaseID)
}

func TestCanBookLockedGatedSession(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 100, serviceSpec{
		serviceType: models.ServicePhysiotherapy, sessions: 3,
		locked: true, gate: models.UnlockGateNeurology,
	})
	buyPlan(t, db, patient.ID, plan.ID)

	ent, err := CanBookService(db, patient.ID, models.ServicePhysiotherapy)
	require.NoError(t, err)
	assert.False(t, ent.CanBook)
	assert.Equal(t, "locked until neurology consultation is completed", ent.Reason)
	assert.NotNil(t, ent.Entry)
}

func TestCanBookLockedEntryWithoutLineItem(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	plan := createPlan(t, db, 100, serviceSpec{
		serviceType: models.ServicePhysiotherapy, sessions: 3,
		locked: true, gate: models.UnlockGateNeurology,
	})
	buyPlan(t, db, patient.ID, plan.ID)

	// A product whose line item disappeared still reports the lock, just
	// without a gate hint.
	require.NoError(t, db.Where("product_id = ?", plan.ID).
		Delete(&models.ProductService{}).Error)

	ent, err := CanBookService(db, patient.ID, models.ServicePhysiotherapy)
	require.NoError(t, err)
	assert.False(t, ent.CanBook)
	assert.Equal(t, "service is locked", ent.Reason)
}

func TestIsFirstVisit(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyPsychologist, 60)

	first, err := IsFirstVisit(db, patient.ID, doctor.ID, models.ServicePsychology)
	require.NoError(t, err)
	assert.True(t, first)

	appointment := models.Appointment{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		Date:        futureDate(1),
		Time:        "10:00",
		ServiceType: models.ServicePsychology,
		Status:      models.StatusCompleted,
	}
	require.NoError(t, db.Create(&appointment).Error)

	first, err = IsFirstVisit(db, patient.ID, doctor.ID, models.ServicePsychology)
	require.NoError(t, err)
	assert.False(t, first)

	// Completed visits for another service do not count.
	first, err = IsFirstVisit(db, patient.ID, doctor.ID, models.ServiceNutrition)
	require.NoError(t, err)
	assert.True(t, first)
}
