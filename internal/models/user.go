package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Specialty values a doctor account may carry. Each maps to the
// clinical service type used by the wallet and booking logic.
const (
	SpecialtyNeurologist     = "neurologist"
	SpecialtyPhysiotherapist = "physiotherapist"
	SpecialtyPsychologist    = "psychologist"
	SpecialtyNutritionist    = "nutritionist"
	SpecialtyCoach           = "coach"
)

// User represents a user in the system
type User struct {
	BaseModel
	Email        string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password     string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName    string     `gorm:"size:100" json:"firstName"`
	LastName     string     `gorm:"size:100" json:"lastName"`
	Role         Role       `gorm:"size:20;default:'patient'" json:"role"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	Address      string     `json:"address,omitempty"`
	ProfileImage string     `json:"profileImage,omitempty"`
	Active       bool       `gorm:"default:true" json:"active"`

	// Doctor profile
	Specialty       string  `gorm:"size:50;index" json:"specialty,omitempty"`
	Fee             float64 `gorm:"default:0" json:"fee,omitempty"`
	ExperienceYears int     `gorm:"default:0" json:"experienceYears,omitempty"`
	Bio             string  `gorm:"type:text" json:"bio,omitempty"`
	// Balance is the running total of professional earnings credited by
	// settlement transactions. Only ever increased by this service.
	Balance float64 `gorm:"default:0" json:"-"`

	// Patient state
	// Subscribed is true while the patient holds at least one active purchase.
	Subscribed bool `gorm:"default:false" json:"subscribed"`

	// Relations (not always preloaded)
	RefreshTokens       []RefreshToken    `gorm:"foreignKey:UserID" json:"-"`
	DoctorAppointments  []Appointment     `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment     `gorm:"foreignKey:PatientID" json:"-"`
	Purchases           []PatientPurchase `gorm:"foreignKey:PatientID" json:"-"`
	SentMessages        []Message         `gorm:"foreignKey:SenderID" json:"-"`
	ReceivedMessages    []Message         `gorm:"foreignKey:ReceiverID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	FirstName       string     `json:"firstName"`
	LastName        string     `json:"lastName"`
	Role            Role       `json:"role"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	PhoneNumber     string     `json:"phoneNumber,omitempty"`
	Address         string     `json:"address,omitempty"`
	ProfileImage    string     `json:"profileImage,omitempty"`
	Active          bool       `json:"active"`
	Specialty       string     `json:"specialty,omitempty"`
	Fee             float64    `json:"fee,omitempty"`
	ExperienceYears int        `json:"experienceYears,omitempty"`
	Bio             string     `json:"bio,omitempty"`
	Balance         *float64   `json:"balance,omitempty"`
	Subscribed      bool       `json:"subscribed"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Role:            u.Role,
		DateOfBirth:     u.DateOfBirth,
		PhoneNumber:     u.PhoneNumber,
		Address:         u.Address,
		ProfileImage:    u.ProfileImage,
		Active:          u.Active,
		Specialty:       u.Specialty,
		Fee:             u.Fee,
		ExperienceYears: u.ExperienceYears,
		Bio:             u.Bio,
		Subscribed:      u.Subscribed,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
