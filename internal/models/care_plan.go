package models

// CarePlanStatus represents the sharing state of a care plan
type CarePlanStatus string

const (
	CarePlanDraft  CarePlanStatus = "draft"
	CarePlanShared CarePlanStatus = "shared"
)

// CarePlan is the clinical summary a doctor writes after a completed
// appointment, with the services they recommend going forward. One plan
// per appointment.
type CarePlan struct {
	BaseModel
	AppointmentID string `gorm:"size:36;uniqueIndex" json:"appointmentId"`
	PatientID     string `gorm:"size:36;index" json:"patientId"`
	DoctorID      string `gorm:"size:36;index" json:"doctorId"`

	ClinicalSummary      string `gorm:"type:text;not null" json:"clinicalSummary"`
	RecommendationsNotes string `gorm:"type:text" json:"recommendationsNotes,omitempty"`

	// Follow-up with the gating consultation, when the doctor recommends
	// one. Frequency is a preset label; the custom text overrides it.
	NeurologyFollowupRequired   bool   `gorm:"default:false" json:"neurologyFollowupRequired"`
	NeurologyFollowupFrequency  string `gorm:"size:50" json:"neurologyFollowupFrequency,omitempty"`
	NeurologyFollowupCustomText string `gorm:"size:255" json:"neurologyFollowupCustomText,omitempty"`

	Status CarePlanStatus `gorm:"size:20;default:'shared'" json:"status"`

	// Relations
	Appointment Appointment       `gorm:"foreignKey:AppointmentID" json:"appointment,omitempty"`
	Patient     User              `gorm:"foreignKey:PatientID" json:"patient,omitempty"`
	Doctor      User              `gorm:"foreignKey:DoctorID" json:"doctor,omitempty"`
	Services    []CarePlanService `gorm:"foreignKey:CarePlanID" json:"services,omitempty"`
}

// CarePlanService is one recommended service line of a care plan.
type CarePlanService struct {
	BaseModel
	CarePlanID          string `gorm:"size:36;index" json:"carePlanId"`
	ServiceType         string `gorm:"size:50;not null" json:"serviceType"`
	Frequency           string `gorm:"size:50;not null" json:"frequency"`
	SessionsPerPeriod   int    `gorm:"default:1" json:"sessionsPerPeriod"`
	DurationWeeks       *int   `json:"durationWeeks,omitempty"`
	CustomFrequencyText string `gorm:"size:255" json:"customFrequencyText,omitempty"`
	Notes               string `gorm:"type:text" json:"notes,omitempty"`
}
