package billing

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// Entitlement is the outcome of resolving whether a patient may book a
// service for free from their wallet.
type Entitlement struct {
	CanBook bool
	Reason  string
	Entry   *models.WalletEntry
}

// specialtyServiceTypes maps a doctor specialty to the clinical service
// type it delivers.
var specialtyServiceTypes = map[string]string{
	models.SpecialtyNeurologist:     models.ServiceNeurology,
	models.SpecialtyPhysiotherapist: models.ServicePhysiotherapy,
	models.SpecialtyPsychologist:    models.ServicePsychology,
	models.SpecialtyNutritionist:    models.ServiceNutrition,
	models.SpecialtyCoach:           models.ServiceCoaching,
}

// ServiceTypeForSpecialty resolves a doctor specialty to a service type,
// or "" when the specialty is unknown.
func ServiceTypeForSpecialty(specialty string) string {
	return specialtyServiceTypes[strings.ToLower(strings.TrimSpace(specialty))]
}

// CanBookService decides whether the patient has a usable wallet session
// for the service. Group sessions are never wallet-governed and always
// book as paid. A locked entry is reported with its gate; the resolver
// only reads the lock flag; a satisfied gate has already flipped it by
// the time this runs (see UnlockAfterGate).
func CanBookService(db *gorm.DB, patientID, serviceType string) (Entitlement, error) {
	if serviceType == models.ServiceGroupSession {
		return Entitlement{CanBook: true}, nil
	}

	entry, err := FindUsableEntry(db, patientID, serviceType)
	if err != nil {
		return Entitlement{}, err
	}
	if entry == nil {
		return Entitlement{
			CanBook: false,
			Reason:  "no available sessions in wallet for this service",
		}, nil
	}

	if entry.IsLocked {
		reason := "service is locked"
		if gate, err := unlockGateFor(db, entry); err != nil {
			return Entitlement{}, err
		} else if gate == models.UnlockGateNeurology {
			reason = "locked until neurology consultation is completed"
		}
		return Entitlement{CanBook: false, Reason: reason, Entry: entry}, nil
	}

	return Entitlement{CanBook: true, Entry: entry}, nil
}

// unlockGateFor looks up the gate declared by the product line item
// behind a wallet entry.
func unlockGateFor(db *gorm.DB, entry *models.WalletEntry) (string, error) {
	var purchase models.PatientPurchase
	if err := db.First(&purchase, "id = ?", entry.PurchaseID).Error; err != nil {
		return "", err
	}

	var svc models.ProductService
	err := db.
		Where("product_id = ? AND service_type = ?", purchase.ProductID, entry.ServiceType).
		First(&svc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.UnlockGateNone, nil
		}
		return "", err
	}
	return svc.UnlockAfterService, nil
}

// IsFirstVisit reports whether the patient has never completed an
// appointment with this exact doctor and service type. Selects first-visit
// vs follow-up pricing and commission.
func IsFirstVisit(db *gorm.DB, patientID, doctorID, serviceType string) (bool, error) {
	var count int64
	err := db.Model(&models.Appointment{}).
		Where("patient_id = ? AND doctor_id = ? AND service_type = ? AND status = ?",
			patientID, doctorID, serviceType, models.StatusCompleted).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
