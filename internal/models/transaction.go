package models

// TransactionType classifies ledger records.
type TransactionType string

const (
	TxAppointmentPayment  TransactionType = "appointment_payment"
	TxFollowupAppointment TransactionType = "followup_appointment"
	TxPlanPurchase        TransactionType = "plan_purchase"
)

// TransactionStatus is the payment state of a ledger record. Records are
// immutable after creation except for status (e.g. refund).
type TransactionStatus string

const (
	TxPending  TransactionStatus = "pending"
	TxPaid     TransactionStatus = "paid"
	TxFailed   TransactionStatus = "failed"
	TxRefunded TransactionStatus = "refunded"
)

// Transaction is an immutable financial ledger record. At most one
// settlement transaction exists per appointment (idempotency key =
// AppointmentID).
type Transaction struct {
	BaseModel
	Type      TransactionType `gorm:"size:30;index" json:"type"`
	PatientID string          `gorm:"size:36;index" json:"patientId"`
	// DoctorID is nil for plan purchases, which are not doctor-attributed.
	DoctorID      *string `gorm:"size:36;index" json:"doctorId,omitempty"`
	AppointmentID *string `gorm:"size:36;index" json:"appointmentId,omitempty"`
	ProductID     *string `gorm:"size:36" json:"productId,omitempty"`
	PurchaseID    *string `gorm:"size:36" json:"purchaseId,omitempty"`

	Amount              float64           `gorm:"not null" json:"amount"`
	PlatformFee         float64           `gorm:"default:0" json:"platformFee"`
	ProfessionalEarning float64           `gorm:"default:0" json:"professionalEarning"`
	PaymentMethod       string            `gorm:"size:30" json:"paymentMethod"`
	Status              TransactionStatus `gorm:"size:20;default:'pending';index" json:"status"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}
