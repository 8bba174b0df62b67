package billing

import (
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// PurchaseResult reports the purchase created (or replayed) by a
// confirmed payment.
type PurchaseResult struct {
	PurchaseID       string  `json:"purchaseId"`
	ProductID        string  `json:"productId"`
	TotalPaid        float64 `json:"totalPaid"`
	PlatformFee      float64 `json:"platformFee"`
	ProfessionalPool float64 `json:"professionalPool"`
	// Replayed is true when an active purchase for the same patient and
	// product already existed and was returned unchanged.
	Replayed bool `json:"-"`
}

// ConfirmPurchase settles a confirmed product payment: it records the
// purchase, fans out one wallet entry per included service, writes the
// plan_purchase ledger record, and flips the patient's subscription
// flag. All of it is one transaction; a partial fan-out is never
// observable.
//
// Idempotent: a prior active purchase for the same (patient, product) is
// returned unchanged, so a replayed payment confirmation creates
// nothing.
func ConfirmPurchase(db *gorm.DB, patientID, productID, paymentMethod string) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing models.PatientPurchase
		err := tx.Where("patient_id = ? AND product_id = ? AND status = ?",
			patientID, productID, models.PurchaseActive).
			First(&existing).Error
		if err == nil {
			result = &PurchaseResult{
				PurchaseID:       existing.ID,
				ProductID:        existing.ProductID,
				TotalPaid:        existing.TotalPaid,
				PlatformFee:      existing.PlatformFee,
				ProfessionalPool: existing.ProfessionalPool,
				Replayed:         true,
			}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var product models.Product
		err = tx.Preload("Services").
			Where("id = ? AND active = ?", productID, true).
			First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		// Plan purchases are split at the first-visit rate.
		split, err := CalculateCommission(tx, productID, models.VisitFirst, product.Price)
		if err != nil {
			return err
		}

		purchase := models.PatientPurchase{
			PatientID:        patientID,
			ProductID:        productID,
			TotalPaid:        product.Price,
			PlatformFee:      split.PlatformFee,
			ProfessionalPool: split.ProfessionalEarning,
			Status:           models.PurchaseActive,
		}
		if err := tx.Create(&purchase).Error; err != nil {
			return err
		}

		for _, svc := range product.Services {
			entry := models.WalletEntry{
				PatientID:         patientID,
				PurchaseID:        purchase.ID,
				ServiceType:       svc.ServiceType,
				RemainingSessions: svc.SessionCount,
				// The gating service itself is never locked at creation.
				IsLocked: svc.IsLocked && svc.ServiceType != models.ServiceNeurology,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}

		transaction := models.Transaction{
			Type:      models.TxPlanPurchase,
			PatientID: patientID,
			// Purchases are not doctor-attributed.
			DoctorID:            nil,
			ProductID:           &purchase.ProductID,
			PurchaseID:          &purchase.ID,
			Amount:              product.Price,
			PlatformFee:         split.PlatformFee,
			ProfessionalEarning: split.ProfessionalEarning,
			PaymentMethod:       paymentMethod,
			Status:              models.TxPaid,
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}

		err = tx.Model(&models.User{}).
			Where("id = ? AND role = ?", patientID, models.RolePatient).
			Update("subscribed", true).Error
		if err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"patient_id":  patientID,
			"product_id":  productID,
			"purchase_id": purchase.ID,
			"services":    len(product.Services),
		}).Info("plan purchase settled")

		result = &PurchaseResult{
			PurchaseID:       purchase.ID,
			ProductID:        purchase.ProductID,
			TotalPaid:        purchase.TotalPaid,
			PlatformFee:      purchase.PlatformFee,
			ProfessionalPool: purchase.ProfessionalPool,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
