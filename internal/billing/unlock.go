package billing

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// UnlockAfterGate reacts to the completion of the gating consultation
// (neurology). Two unlock scopes apply:
//
//  1. Purchase scope: entries of the linked purchase whose product line
//     item declares unlock_after_service = neurology are unlocked.
//  2. Patient scope: every other locked entry of the patient, across any
//     purchase, is unlocked, except entries for the gating service
//     itself. A single neurology consultation unlocks the patient's
//     entire bundle, not only the bundle tied to one purchase.
//
// Callers treat this as best-effort: a failure here must never roll back
// or fail the appointment-completion transition.
func UnlockAfterGate(db *gorm.DB, patientID string, purchaseID *string) error {
	if purchaseID != nil {
		if err := UnlockEntriesForPurchase(db, *purchaseID, models.UnlockGateNeurology); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"patient_id":  patientID,
			"purchase_id": *purchaseID,
		}).Info("unlocked gated wallet entries for purchase")
	}

	res := db.Model(&models.WalletEntry{}).
		Where("patient_id = ? AND service_type <> ? AND is_locked = ?",
			patientID, models.ServiceNeurology, true).
		Update("is_locked", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		logrus.WithFields(logrus.Fields{
			"patient_id": patientID,
			"entries":    res.RowsAffected,
		}).Info("unlocked patient-wide wallet entries after gating consultation")
	}
	return nil
}
