package billing

import (
	"errors"

	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// FindUsableEntry selects a wallet entry for the patient and service
// with sessions left and an active parent purchase. Unlocked entries are
// preferred; within each group the oldest entry wins, so consumption is
// FIFO across multiple purchases of the same service.
//
// Returns (nil, nil) when no candidate exists.
func FindUsableEntry(db *gorm.DB, patientID, serviceType string) (*models.WalletEntry, error) {
	var entry models.WalletEntry
	err := db.
		Joins("JOIN patient_purchases ON patient_purchases.id = patient_service_wallet.purchase_id").
		Where("patient_service_wallet.patient_id = ?", patientID).
		Where("patient_service_wallet.service_type = ?", serviceType).
		Where("patient_service_wallet.remaining_sessions > 0").
		Where("patient_purchases.status = ?", models.PurchaseActive).
		Order("patient_service_wallet.is_locked ASC, patient_service_wallet.created_at ASC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ConsumeSession decrements one session from the oldest entry of the
// purchase for the given service. The decrement is a conditional update
// guarded by remaining_sessions > 0; zero rows affected means another
// request won the race and the next entry (if any) is tried. Returns the
// id of the consumed entry, or ErrNoAvailableSessions.
//
// When the purchase's total remaining balance reaches zero its status
// transitions to completed. Must run on the caller's transaction handle.
func ConsumeSession(db *gorm.DB, purchaseID, serviceType string) (string, error) {
	var entries []models.WalletEntry
	err := db.
		Where("purchase_id = ? AND service_type = ? AND remaining_sessions > 0", purchaseID, serviceType).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return "", err
	}

	var consumedID string
	for _, entry := range entries {
		res := db.Model(&models.WalletEntry{}).
			Where("id = ? AND remaining_sessions > 0", entry.ID).
			UpdateColumn("remaining_sessions", gorm.Expr("remaining_sessions - 1"))
		if res.Error != nil {
			return "", res.Error
		}
		if res.RowsAffected > 0 {
			consumedID = entry.ID
			break
		}
	}
	if consumedID == "" {
		return "", ErrNoAvailableSessions
	}

	var totalRemaining int64
	err = db.Model(&models.WalletEntry{}).
		Where("purchase_id = ?", purchaseID).
		Select("COALESCE(SUM(remaining_sessions), 0)").
		Scan(&totalRemaining).Error
	if err != nil {
		return "", err
	}

	if totalRemaining == 0 {
		err = db.Model(&models.PatientPurchase{}).
			Where("id = ? AND status = ?", purchaseID, models.PurchaseActive).
			Update("status", models.PurchaseCompleted).Error
		if err != nil {
			return "", err
		}
	}

	return consumedID, nil
}

// LockEntriesForPurchase locks every wallet entry of a purchase,
// regardless of gate. Used by cancellation and expiry.
func LockEntriesForPurchase(db *gorm.DB, purchaseID string) error {
	return db.Model(&models.WalletEntry{}).
		Where("purchase_id = ?", purchaseID).
		Update("is_locked", true).Error
}

// UnlockEntriesForPurchase unlocks the entries of a purchase whose
// product line item declares the given unlock gate.
func UnlockEntriesForPurchase(db *gorm.DB, purchaseID, gate string) error {
	var purchase models.PatientPurchase
	if err := db.First(&purchase, "id = ?", purchaseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPurchaseNotActive
		}
		return err
	}

	var gatedServices []models.ProductService
	err := db.
		Where("product_id = ? AND unlock_after_service = ?", purchase.ProductID, gate).
		Find(&gatedServices).Error
	if err != nil {
		return err
	}
	if len(gatedServices) == 0 {
		return nil
	}

	serviceTypes := make([]string, 0, len(gatedServices))
	for _, svc := range gatedServices {
		serviceTypes = append(serviceTypes, svc.ServiceType)
	}

	return db.Model(&models.WalletEntry{}).
		Where("purchase_id = ? AND service_type IN ? AND is_locked = ?", purchaseID, serviceTypes, true).
		Update("is_locked", false).Error
}
