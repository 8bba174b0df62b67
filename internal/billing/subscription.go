package billing

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// CancelPlan cancels an active purchase at the patient's request: the
// purchase becomes cancelled, every wallet entry of the purchase is
// locked, and the patient's subscription flag is dropped when no other
// active purchase remains. Entirely one transaction.
func CancelPlan(db *gorm.DB, patientID, purchaseID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var purchase models.PatientPurchase
		err := tx.Where("id = ? AND patient_id = ? AND status = ?",
			purchaseID, patientID, models.PurchaseActive).
			First(&purchase).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotActive
			}
			return err
		}

		return terminatePurchase(tx, &purchase, models.PurchaseCancelled)
	})
}

// ExpirePlan marks an active purchase as expired. System-initiated: no
// ownership check beyond the purchase existing and being active.
func ExpirePlan(db *gorm.DB, purchaseID string) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var purchase models.PatientPurchase
		err := tx.Where("id = ? AND status = ?", purchaseID, models.PurchaseActive).
			First(&purchase).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPurchaseNotActive
			}
			return err
		}

		return terminatePurchase(tx, &purchase, models.PurchaseExpired)
	})
}

func terminatePurchase(tx *gorm.DB, purchase *models.PatientPurchase, status models.PurchaseStatus) error {
	err := tx.Model(&models.PatientPurchase{}).
		Where("id = ?", purchase.ID).
		Update("status", status).Error
	if err != nil {
		return err
	}

	if err := LockEntriesForPurchase(tx, purchase.ID); err != nil {
		return err
	}

	if err := refreshSubscriptionFlag(tx, purchase.PatientID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"patient_id":  purchase.PatientID,
		"purchase_id": purchase.ID,
		"status":      status,
	}).Info("purchase terminated")
	return nil
}

// refreshSubscriptionFlag recomputes the patient's subscription flag
// from their remaining active purchases.
func refreshSubscriptionFlag(tx *gorm.DB, patientID string) error {
	var activeCount int64
	err := tx.Model(&models.PatientPurchase{}).
		Where("patient_id = ? AND status = ?", patientID, models.PurchaseActive).
		Count(&activeCount).Error
	if err != nil {
		return err
	}
	if activeCount > 0 {
		return nil
	}
	return tx.Model(&models.User{}).
		Where("id = ? AND role = ?", patientID, models.RolePatient).
		Update("subscribed", false).Error
}
