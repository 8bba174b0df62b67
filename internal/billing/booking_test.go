package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/models"
)

func TestWalletBookingConsumesSession(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyPsychologist, 60)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           futureDate(3),
		Time:           "10:00",
		AppointmentFor: "self",
	})
	require.NoError(t, err)
	assert.Zero(t, result.Fee)
	assert.True(t, result.ConsumedFromPlan)
	assert.Equal(t, models.ServicePsychology, result.ServiceType)
	assert.Equal(t, models.VisitFirst, result.VisitType)

	entry := walletEntry(t, db, purchase.ID, models.ServicePsychology)
	assert.Equal(t, 1, entry.RemainingSessions)

	var appointment models.Appointment
	require.NoError(t, db.First(&appointment, "id = ?", result.AppointmentID).Error)
	assert.Equal(t, models.StatusPending, appointment.Status)
	assert.Equal(t, "none", appointment.PaymentMethod)
	require.NotNil(t, appointment.PurchaseID)
	assert.Equal(t, purchase.ID, *appointment.PurchaseID)

	var transaction models.Transaction
	require.NoError(t, db.Where("appointment_id = ?", result.AppointmentID).First(&transaction).Error)
	assert.Equal(t, models.TxFollowupAppointment, transaction.Type)
	assert.Zero(t, transaction.Amount)
	assert.Zero(t, transaction.ProfessionalEarning)
}

func TestWalletBookingDetectsFollowup(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyPsychologist, 60)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 3})
	buyPlan(t, db, patient.ID, plan.ID)

	prior := models.Appointment{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		Date:        futureDate(1),
		Time:        "09:00",
		ServiceType: models.ServicePsychology,
		Status:      models.StatusCompleted,
	}
	require.NoError(t, db.Create(&prior).Error)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           futureDate(4),
		Time:           "10:00",
		AppointmentFor: "self",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisitFollowup, result.VisitType)
	assert.True(t, result.ConsumedFromPlan)
}

func TestPaidBookingRequiresConfirmedPayment(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	_, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           futureDate(3),
		Time:           "10:00",
		AppointmentFor: "self",
		PaymentMethod:  "stripe",
	})
	assert.ErrorIs(t, err, ErrPaymentRequired)

	var count int64
	db.Model(&models.Appointment{}).Where("patient_id = ?", patient.ID).Count(&count)
	assert.Zero(t, count, "a rejected booking leaves no appointment behind")
}

func TestPaidBookingSettlesAtDoctorFee(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 60)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00",
		AppointmentFor:   "self",
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
		PaymentIntentID:  "pi_test_123",
	})
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Fee)
	assert.False(t, result.ConsumedFromPlan)
	assert.Equal(t, models.VisitFollowup, result.VisitType)

	var appointment models.Appointment
	require.NoError(t, db.First(&appointment, "id = ?", result.AppointmentID).Error)
	assert.Equal(t, models.StatusAccepted, appointment.Status)
	require.NotNil(t, appointment.PaymentIntentID)
	assert.Equal(t, "pi_test_123", *appointment.PaymentIntentID)

	var transaction models.Transaction
	require.NoError(t, db.Where("appointment_id = ?", result.AppointmentID).First(&transaction).Error)
	assert.Equal(t, models.TxAppointmentPayment, transaction.Type)
	assert.Equal(t, 60.0, transaction.Amount)
	assert.Equal(t, 12.0, transaction.PlatformFee)
	assert.Equal(t, 48.0, transaction.ProfessionalEarning)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", doctor.ID).Error)
	assert.Equal(t, 48.0, reloaded.Balance)
}

func TestPaidBookingReplaysSameIntent(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 60)

	request := BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00",
		AppointmentFor:   "self",
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
		PaymentIntentID:  "pi_replay_1",
	}

	first, err := CreateBooking(db, testPolicy(), request)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := CreateBooking(db, testPolicy(), request)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.AppointmentID, second.AppointmentID)
	assert.Equal(t, first.Fee, second.Fee)

	var appointments int64
	require.NoError(t, db.Model(&models.Appointment{}).
		Where("payment_intent_id = ?", "pi_replay_1").Count(&appointments).Error)
	assert.EqualValues(t, 1, appointments)

	var transactions int64
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("appointment_id = ?", first.AppointmentID).Count(&transactions).Error)
	assert.EqualValues(t, 1, transactions)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", doctor.ID).Error)
	assert.Equal(t, 48.0, reloaded.Balance)
}

func TestGroupSessionBookingUsesFlatFee(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyCoach, 90)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "18:00",
		AppointmentFor:   "self",
		ServiceType:      models.ServiceGroupSession,
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, result.Fee)
	assert.False(t, result.ConsumedFromPlan)
}

func TestBookingRejectsLiveSlotConflict(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	existing := models.Appointment{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		Date:        futureDate(3),
		Time:        "10:00",
		ServiceType: models.ServiceNutrition,
		Status:      models.StatusAccepted,
	}
	require.NoError(t, db.Create(&existing).Error)

	_, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00",
		AppointmentFor:   "self",
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestBookingCancelsStalePendingDuplicate(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	stale := models.Appointment{
		PatientID:   patient.ID,
		DoctorID:    doctor.ID,
		Date:        futureDate(3),
		Time:        "10:00",
		ServiceType: models.ServiceNutrition,
		Status:      models.StatusPending,
	}
	require.NoError(t, db.Create(&stale).Error)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00",
		AppointmentFor:   "self",
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
	})
	require.NoError(t, err)

	var reloaded models.Appointment
	require.NoError(t, db.First(&reloaded, "id = ?", stale.ID).Error)
	assert.Equal(t, models.StatusCancelled, reloaded.Status)
	assert.NotEqual(t, stale.ID, result.AppointmentID)
}

func TestBookingValidation(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	base := BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00",
		AppointmentFor:   "self",
		PaymentConfirmed: true,
	}

	t.Run("past date", func(t *testing.T) {
		req := base
		req.Date = "2020-01-01"
		_, err := CreateBooking(db, testPolicy(), req)
		assert.ErrorIs(t, err, ErrPastDate)
	})

	t.Run("malformed date", func(t *testing.T) {
		req := base
		req.Date = "01-02-2026"
		_, err := CreateBooking(db, testPolicy(), req)
		assert.ErrorIs(t, err, ErrInvalidDate)
	})

	t.Run("malformed time", func(t *testing.T) {
		req := base
		req.Time = "25:99"
		_, err := CreateBooking(db, testPolicy(), req)
		assert.ErrorIs(t, err, ErrInvalidTime)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		req := base
		req.DoctorID = "00000000-0000-0000-0000-000000000000"
		_, err := CreateBooking(db, testPolicy(), req)
		assert.ErrorIs(t, err, ErrDoctorNotFound)
	})

	t.Run("unresolvable service type", func(t *testing.T) {
		odd := createDoctor(t, db, "", 45)
		req := base
		req.DoctorID = odd.ID
		_, err := CreateBooking(db, testPolicy(), req)
		assert.ErrorIs(t, err, ErrServiceTypeUnknown)
	})
}

func TestBookingNormalizesTimeRange(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:        patient.ID,
		DoctorID:         doctor.ID,
		Date:             futureDate(3),
		Time:             "10:00 - 11:00",
		AppointmentFor:   "self",
		PaymentMethod:    "stripe",
		PaymentConfirmed: true,
	})
	require.NoError(t, err)

	var appointment models.Appointment
	require.NoError(t, db.First(&appointment, "id = ?", result.AppointmentID).Error)
	assert.Equal(t, "10:00", appointment.Time)
}

func TestSettleCompletionIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyPsychologist, 60)
	plan := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})
	buyPlan(t, db, patient.ID, plan.ID)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		Date:           futureDate(3),
		Time:           "10:00",
		AppointmentFor: "self",
	})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.Appointment{}).
		Where("id = ?", result.AppointmentID).
		Update("status", models.StatusCompleted).Error)

	require.NoError(t, SettleCompletion(db, result.AppointmentID))
	require.NoError(t, SettleCompletion(db, result.AppointmentID))

	var txCount int64
	db.Model(&models.Transaction{}).Where("appointment_id = ?", result.AppointmentID).Count(&txCount)
	assert.EqualValues(t, 1, txCount, "the booking settlement is the only ledger record")
}

func TestSettleCompletionPaysUnsettledFee(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	doctor := createDoctor(t, db, models.SpecialtyNutritionist, 45)

	appointment := models.Appointment{
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		Date:          futureDate(1),
		Time:          "11:00",
		ServiceType:   models.ServiceNutrition,
		VisitType:     models.VisitFollowup,
		Fee:           100,
		PaymentMethod: "cash",
		Status:        models.StatusCompleted,
	}
	require.NoError(t, db.Create(&appointment).Error)

	require.NoError(t, SettleCompletion(db, appointment.ID))

	var transaction models.Transaction
	require.NoError(t, db.Where("appointment_id = ?", appointment.ID).First(&transaction).Error)
	assert.Equal(t, 100.0, transaction.Amount)
	assert.Equal(t, 20.0, transaction.PlatformFee)
	assert.Equal(t, 80.0, transaction.ProfessionalEarning)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", doctor.ID).Error)
	assert.Equal(t, 80.0, reloaded.Balance)
}

func TestSettleCompletionUnlocksAfterNeurology(t *testing.T) {
	db := setupTestDB(t)
	patient := createPatient(t, db)
	neurologist := createDoctor(t, db, models.SpecialtyNeurologist, 120)
	plan := createPlan(t, db, 400,
		serviceSpec{serviceType: models.ServiceNeurology, sessions: 1, locked: true, gate: models.UnlockGateNeurology},
		serviceSpec{serviceType: models.ServicePhysiotherapy, sessions: 3, locked: true, gate: models.UnlockGateNeurology},
	)
	purchase := buyPlan(t, db, patient.ID, plan.ID)

	result, err := CreateBooking(db, testPolicy(), BookingRequest{
		PatientID:      patient.ID,
		DoctorID:       neurologist.ID,
		Date:           futureDate(2),
		Time:           "09:00",
		AppointmentFor: "self",
	})
	require.NoError(t, err)
	require.True(t, result.ConsumedFromPlan)

	require.NoError(t, db.Model(&models.Appointment{}).
		Where("id = ?", result.AppointmentID).
		Update("status", models.StatusCompleted).Error)
	require.NoError(t, SettleCompletion(db, result.AppointmentID))

	physio := walletEntry(t, db, purchase.ID, models.ServicePhysiotherapy)
	assert.False(t, physio.IsLocked)
	assert.Equal(t, 3, physio.RemainingSessions)

	// The neurology session itself was consumed by the booking.
	neuro := walletEntry(t, db, purchase.ID, models.ServiceNeurology)
	assert.Equal(t, 0, neuro.RemainingSessions)
}
