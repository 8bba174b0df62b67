package models

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusAccepted  AppointmentStatus = "accepted"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// VisitType distinguishes first visits from follow-ups; it selects the
// commission rate when the appointment is settled.
type VisitType string

const (
	VisitFirst    VisitType = "first"
	VisitFollowup VisitType = "followup"
)

// Appointment represents a scheduled clinical encounter
type Appointment struct {
	BaseModel
	PatientID string `gorm:"size:36;index" json:"patientId"`
	DoctorID  string `gorm:"size:36;index" json:"doctorId"`
	// Date is YYYY-MM-DD, Time is HH:MM. Stored separately so the
	// duplicate-slot check is a plain equality match.
	Date           string            `gorm:"size:10;index" json:"date"`
	Time           string            `gorm:"size:5" json:"time"`
	AppointmentFor string            `gorm:"size:100" json:"appointmentFor"`
	ServiceType    string            `gorm:"size:50;index" json:"serviceType"`
	VisitType      VisitType         `gorm:"size:20;default:'first'" json:"visitType"`
	Fee            float64           `gorm:"default:0" json:"fee"`
	PaymentMethod  string            `gorm:"size:30" json:"paymentMethod"`
	Status         AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	Reason         string            `gorm:"size:255" json:"reason"`
	Notes          string            `gorm:"type:text" json:"notes"`

	// ConsumedFromPlan marks an appointment funded by a wallet session
	// rather than a payment; PurchaseID/ProductID link it to the plan.
	ConsumedFromPlan bool    `gorm:"default:false" json:"consumedFromPlan"`
	PurchaseID       *string `gorm:"size:36;index" json:"purchaseId,omitempty"`
	ProductID        *string `gorm:"size:36" json:"productId,omitempty"`

	// PaymentIntentID is the gateway reference for paid bookings. The
	// payment-confirmation replay check keys on it, and the unique index
	// guarantees one appointment per gateway charge even if two
	// confirmations race past the check.
	PaymentIntentID *string `gorm:"size:255;uniqueIndex" json:"-"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
}
