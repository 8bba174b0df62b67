package models

// PurchaseStatus represents the lifecycle state of a patient purchase.
// Terminal states (completed, cancelled, expired) are final: wallet
// entries of a non-active purchase are never consumed again.
type PurchaseStatus string

const (
	PurchaseActive    PurchaseStatus = "active"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
	PurchaseExpired   PurchaseStatus = "expired"
)

// PatientPurchase is one instance of a patient acquiring a Product.
// Created atomically with its wallet entries.
type PatientPurchase struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	ProductID string `gorm:"size:36;index" json:"productId"`

	TotalPaid        float64        `gorm:"not null" json:"totalPaid"`
	PlatformFee      float64        `gorm:"not null" json:"platformFee"`
	ProfessionalPool float64        `gorm:"not null" json:"professionalPool"`
	Status           PurchaseStatus `gorm:"size:20;default:'active';index" json:"status"`

	// Relations
	Patient       User          `gorm:"foreignKey:PatientID" json:"-"`
	Product       Product       `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	WalletEntries []WalletEntry `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE" json:"wallet,omitempty"`
}

// WalletEntry is the per (purchase, service type) remaining session
// balance and lock flag. RemainingSessions never goes below zero:
// consumption is an atomic conditional decrement.
type WalletEntry struct {
	BaseModel
	PatientID         string `gorm:"size:36;index" json:"patientId"`
	PurchaseID        string `gorm:"size:36;index" json:"purchaseId"`
	ServiceType       string `gorm:"size:50;index" json:"serviceType"`
	RemainingSessions int    `gorm:"not null" json:"remainingSessions"`
	// IsLocked is independent of the balance: a locked entry with
	// sessions left cannot be consumed until unlocked.
	IsLocked bool `gorm:"default:false" json:"isLocked"`

	Purchase PatientPurchase `gorm:"foreignKey:PurchaseID" json:"-"`
}

// TableName keeps the historical wallet table name.
func (WalletEntry) TableName() string {
	return "patient_service_wallet"
}
