package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// BookingRequest carries everything needed to create and settle an
// appointment for an authenticated patient.
type BookingRequest struct {
	PatientID      string
	DoctorID       string
	Date           string // YYYY-MM-DD
	Time           string // HH:MM, or "HH:MM - HH:MM" (start is kept)
	AppointmentFor string
	ServiceType    string // optional; derived from doctor specialty when empty
	Reason         string
	Notes          string
	PaymentMethod  string

	// PaymentConfirmed is set by the payment-confirmation flow once the
	// gateway reports the money captured. A non-wallet booking without it
	// fails with ErrPaymentRequired: payment always precedes booking on
	// the paid path.
	PaymentConfirmed bool
	PaymentIntentID  string
}

// BookingResult is the outcome of a successful booking.
type BookingResult struct {
	AppointmentID    string           `json:"appointmentId"`
	Fee              float64          `json:"fee"`
	ConsumedFromPlan bool             `json:"consumedFromPlan"`
	ServiceType      string           `json:"serviceType"`
	VisitType        models.VisitType `json:"visitType"`
	// Replayed is true when an appointment booked with the same payment
	// intent already existed and was returned unchanged.
	Replayed bool `json:"-"`
}

func resultFromAppointment(appointment *models.Appointment, replayed bool) *BookingResult {
	return &BookingResult{
		AppointmentID:    appointment.ID,
		Fee:              appointment.Fee,
		ConsumedFromPlan: appointment.ConsumedFromPlan,
		ServiceType:      appointment.ServiceType,
		VisitType:        appointment.VisitType,
		Replayed:         replayed,
	}
}

// CreateBooking runs the whole booking settlement in one database
// transaction: validation, entitlement resolution, wallet consumption or
// paid settlement, the appointment write, the ledger record, and the
// doctor balance credit. Any failure rolls the entire booking back.
func CreateBooking(db *gorm.DB, pol Policy, req BookingRequest) (*BookingResult, error) {
	slotTime, err := normalizeTime(req.Time)
	if err != nil {
		return nil, err
	}
	if err := validateDate(req.Date); err != nil {
		return nil, err
	}

	var result *BookingResult
	err = db.Transaction(func(tx *gorm.DB) error {
		// Replay detection for paid bookings runs inside the transaction
		// so two concurrent confirmations of the same gateway charge
		// cannot both proceed; the unique index on payment_intent_id
		// rejects whichever write slips past this read.
		if req.PaymentIntentID != "" {
			var existing models.Appointment
			err := tx.Where("payment_intent_id = ?", req.PaymentIntentID).First(&existing).Error
			if err == nil {
				result = resultFromAppointment(&existing, true)
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		var doctor models.User
		err := tx.Where("id = ? AND role = ? AND active = ?", req.DoctorID, models.RoleDoctor, true).
			First(&doctor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDoctorNotFound
			}
			return err
		}

		serviceType := req.ServiceType
		if serviceType == "" {
			serviceType = ServiceTypeForSpecialty(doctor.Specialty)
		}
		if serviceType == "" {
			return ErrServiceTypeUnknown
		}

		if err := clearSlot(tx, req.PatientID, req.DoctorID, req.Date, slotTime); err != nil {
			return err
		}

		ent, err := CanBookService(tx, req.PatientID, serviceType)
		if err != nil {
			return err
		}

		appointment := models.Appointment{
			PatientID:      req.PatientID,
			DoctorID:       req.DoctorID,
			Date:           req.Date,
			Time:           slotTime,
			AppointmentFor: req.AppointmentFor,
			ServiceType:    serviceType,
			Reason:         req.Reason,
			Notes:          req.Notes,
			PaymentMethod:  req.PaymentMethod,
			Status:         models.StatusPending,
		}
		if req.PaymentIntentID != "" {
			intentID := req.PaymentIntentID
			appointment.PaymentIntentID = &intentID
		}

		walletFunded := ent.CanBook && serviceType != models.ServiceGroupSession && ent.Entry != nil

		if walletFunded {
			if _, err := ConsumeSession(tx, ent.Entry.PurchaseID, serviceType); err != nil {
				// The entry may have been drained between resolution and
				// consumption; the re-check inside ConsumeSession closes
				// that window and the booking falls through as an error.
				return err
			}

			first, err := IsFirstVisit(tx, req.PatientID, req.DoctorID, serviceType)
			if err != nil {
				return err
			}

			var purchase models.PatientPurchase
			if err := tx.First(&purchase, "id = ?", ent.Entry.PurchaseID).Error; err != nil {
				return err
			}

			appointment.Fee = 0
			appointment.PaymentMethod = "none"
			appointment.ConsumedFromPlan = true
			appointment.PurchaseID = &purchase.ID
			appointment.ProductID = &purchase.ProductID
			appointment.VisitType = models.VisitFirst
			if !first {
				appointment.VisitType = models.VisitFollowup
			}
		} else {
			if !req.PaymentConfirmed {
				return ErrPaymentRequired
			}
			// Paid bookings are never billed at first-visit pricing.
			appointment.VisitType = models.VisitFollowup
			appointment.Fee = doctor.Fee
			if serviceType == models.ServiceGroupSession {
				appointment.Fee = pol.GroupSessionFee
			}
			// Payment has already been captured for this slot.
			appointment.Status = models.StatusAccepted
		}

		if err := tx.Create(&appointment).Error; err != nil {
			return err
		}

		if walletFunded {
			split, err := CalculateCommission(tx, *appointment.ProductID, appointment.VisitType, 0)
			if err != nil {
				return err
			}
			if err := recordSettlement(tx, &appointment, models.TxFollowupAppointment, 0, split); err != nil {
				return err
			}
		} else {
			split := pol.DefaultSplit(appointment.Fee)
			if err := recordSettlement(tx, &appointment, models.TxAppointmentPayment, appointment.Fee, split); err != nil {
				return err
			}
		}

		result = resultFromAppointment(&appointment, false)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SettleCompletion runs the completion-time side effects for an
// appointment that has just transitioned to completed: the gating unlock
// when the gating service finished, and, if the appointment was never
// settled, the settlement transaction and doctor balance credit.
//
// Idempotent: an existing transaction for the appointment skips
// settlement. Callers treat the whole call as best-effort; its failure
// never reverts the status change.
func SettleCompletion(db *gorm.DB, appointmentID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var appointment models.Appointment
		err := tx.Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrAppointmentNotFound
			}
			return err
		}

		if isGatingService(&appointment) {
			if err := UnlockAfterGate(tx, appointment.PatientID, appointment.PurchaseID); err != nil {
				logrus.WithError(err).WithField("appointment_id", appointmentID).
					Warn("failed to unlock wallet entries after gating consultation")
			}
		}

		var existing int64
		err = tx.Model(&models.Transaction{}).
			Where("appointment_id = ?", appointmentID).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		if appointment.ConsumedFromPlan && appointment.PurchaseID != nil && appointment.ProductID != nil {
			visitType := appointment.VisitType
			if visitType == "" {
				visitType = models.VisitFollowup
			}
			split, err := CalculateCommission(tx, *appointment.ProductID, visitType, 0)
			if err != nil {
				logrus.WithError(err).WithField("appointment_id", appointmentID).
					Warn("commission lookup failed for plan appointment, settling at zero")
				split = Split{}
			}
			return recordSettlement(tx, &appointment, models.TxFollowupAppointment, 0, split)
		}

		if appointment.Fee > 0 {
			split := CompletionFeeSplit(appointment.Fee)
			return recordSettlement(tx, &appointment, models.TxFollowupAppointment, appointment.Fee, split)
		}

		return nil
	})
}

// recordSettlement writes the ledger record for an appointment and
// credits the doctor's balance with the professional earning.
func recordSettlement(tx *gorm.DB, appointment *models.Appointment, txType models.TransactionType, amount float64, split Split) error {
	doctorID := appointment.DoctorID
	transaction := models.Transaction{
		Type:                txType,
		PatientID:           appointment.PatientID,
		DoctorID:            &doctorID,
		AppointmentID:       &appointment.ID,
		ProductID:           appointment.ProductID,
		PurchaseID:          appointment.PurchaseID,
		Amount:              amount,
		PlatformFee:         split.PlatformFee,
		ProfessionalEarning: split.ProfessionalEarning,
		PaymentMethod:       appointment.PaymentMethod,
		Status:              models.TxPaid,
	}
	if err := tx.Create(&transaction).Error; err != nil {
		return err
	}

	if split.ProfessionalEarning > 0 {
		err := tx.Model(&models.User{}).
			Where("id = ? AND role = ?", appointment.DoctorID, models.RoleDoctor).
			Update("balance", gorm.Expr("balance + ?", split.ProfessionalEarning)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// clearSlot enforces at most one live appointment per (patient, doctor,
// date, time): accepted or completed conflicts reject the booking, and
// stale pending duplicates at the slot are cancelled.
func clearSlot(tx *gorm.DB, patientID, doctorID, date, slotTime string) error {
	var conflicts []models.Appointment
	err := tx.
		Where("patient_id = ? AND doctor_id = ? AND date = ? AND time = ?", patientID, doctorID, date, slotTime).
		Where("status IN ?", []models.AppointmentStatus{models.StatusPending, models.StatusAccepted, models.StatusCompleted}).
		Find(&conflicts).Error
	if err != nil {
		return err
	}

	for _, conflict := range conflicts {
		if conflict.Status != models.StatusPending {
			return ErrSlotTaken
		}
	}
	for _, conflict := range conflicts {
		err := tx.Model(&models.Appointment{}).
			Where("id = ?", conflict.ID).
			Update("status", models.StatusCancelled).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func isGatingService(appointment *models.Appointment) bool {
	if appointment.ServiceType == models.ServiceNeurology {
		return true
	}
	return strings.EqualFold(appointment.Doctor.Specialty, models.SpecialtyNeurologist)
}

// normalizeTime accepts "HH:MM" or a range "HH:MM - HH:MM" and returns
// the validated start time.
func normalizeTime(raw string) (string, error) {
	value := raw
	if idx := strings.Index(value, " - "); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return "", ErrInvalidTime
	}
	return value, nil
}

func validateDate(raw string) error {
	parsed, err := time.ParseInLocation("2006-01-02", raw, time.Local)
	if err != nil {
		return ErrInvalidDate
	}
	today := time.Now().In(time.Local)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	if parsed.Before(today) {
		return ErrPastDate
	}
	return nil
}
