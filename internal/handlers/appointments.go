package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/billing"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB  *gorm.DB
	Cfg *config.Config
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, cfg *config.Config) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Cfg: cfg}
}

func (h *AppointmentHandler) policy() billing.Policy {
	return billing.Policy{
		DefaultCommissionPercent: h.Cfg.Billing.DefaultCommissionPercent,
		GroupSessionFee:          h.Cfg.Billing.GroupSessionFee,
	}
}

// CreateAppointmentRequest represents the request body for creating an appointment.
type CreateAppointmentRequest struct {
	DoctorID       string `json:"doctorId" binding:"required,uuid"`
	Date           string `json:"date" binding:"required"`
	Time           string `json:"time" binding:"required"`
	AppointmentFor string `json:"appointmentFor" binding:"required"`
	ServiceType    string `json:"serviceType"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
	PaymentMethod  string `json:"paymentMethod"`
}

// CreateAppointment books an appointment for the authenticated patient.
// Wallet-funded bookings settle here directly; a booking that needs
// payment is rejected with 402 and must go through the payment-intent
// flow, which creates the appointment on confirmation.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Patient ID not found in token")
		return
	}

	result, err := billing.CreateBooking(h.DB, h.policy(), billing.BookingRequest{
		PatientID:      patientID,
		DoctorID:       req.DoctorID,
		Date:           req.Date,
		Time:           req.Time,
		AppointmentFor: req.AppointmentFor,
		ServiceType:    req.ServiceType,
		Reason:         req.Reason,
		Notes:          req.Notes,
		PaymentMethod:  req.PaymentMethod,
	})
	if err != nil {
		respondBillingError(c, err)
		return
	}

	utils.Created(c, "Appointment created successfully", result)
}

// GetAppointmentsForUser handles fetching appointments for the logged-in user.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointments []models.Appointment
	query := h.DB.Preload("Patient").Preload("Doctor").
		Order("date DESC, time DESC")

	var err error
	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID handles fetching a single appointment by its ID.
// Accessible by involved patient, doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole != models.RoleAdmin && userID != appointment.PatientID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// CancelAppointment lets a patient cancel their own pending or accepted
// appointment.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")
	patientID, _ := middleware.GetUserIDFromContext(c)

	res := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND patient_id = ? AND status IN ?", appointmentID, patientID,
			[]models.AppointmentStatus{models.StatusPending, models.StatusAccepted}).
		Update("status", models.StatusCancelled)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to cancel appointment: "+res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Appointment not found or cannot be cancelled anymore")
		return
	}

	utils.Success(c, "Appointment cancelled", nil)
}

// AcceptAppointment lets a doctor accept a pending appointment of theirs.
func (h *AppointmentHandler) AcceptAppointment(c *gin.Context) {
	appointmentID := c.Param("id")
	doctorID, _ := middleware.GetUserIDFromContext(c)

	res := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND doctor_id = ? AND status = ?", appointmentID, doctorID, models.StatusPending).
		Update("status", models.StatusAccepted)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to accept appointment: "+res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Appointment not found or already processed")
		return
	}

	utils.Success(c, "Appointment accepted", nil)
}

// UpdateAppointmentStatusRequest represents the request body for updating an appointment's status.
type UpdateAppointmentStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required,oneof=accepted rejected completed"`
	Notes  string                   `json:"notes"`
}

// UpdateAppointmentStatus lets the treating doctor advance the status of
// one of their appointments. Marking an appointment completed triggers
// the completion settlement and, for the gating service, the wallet
// unlock, both best-effort: their failure never reverts the status.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentID := c.Param("id")
	doctorID, _ := middleware.GetUserIDFromContext(c)

	var req UpdateAppointmentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	updates := map[string]interface{}{"status": req.Status}
	if req.Notes != "" {
		updates["notes"] = req.Notes
	}

	res := h.DB.Model(&models.Appointment{}).
		Where("id = ? AND doctor_id = ?", appointmentID, doctorID).
		Updates(updates)
	if res.Error != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+res.Error.Error())
		return
	}
	if res.RowsAffected == 0 {
		utils.NotFound(c, "Appointment not found")
		return
	}

	if req.Status == models.StatusCompleted {
		if err := billing.SettleCompletion(h.DB, appointmentID); err != nil {
			logrus.WithError(err).WithField("appointment_id", appointmentID).
				Error("completion settlement failed")
		}
	}

	utils.Success(c, "Appointment updated successfully", nil)
}
