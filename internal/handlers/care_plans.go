package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// CarePlanHandler handles the clinical care plans doctors write after
// completed appointments.
type CarePlanHandler struct {
	DB *gorm.DB
}

// NewCarePlanHandler creates a new CarePlanHandler.
func NewCarePlanHandler(db *gorm.DB) *CarePlanHandler {
	return &CarePlanHandler{DB: db}
}

// CarePlanServiceRequest is one recommended service line in a create or
// update request.
type CarePlanServiceRequest struct {
	ServiceType         string `json:"serviceType" binding:"required"`
	Frequency           string `json:"frequency" binding:"required"`
	SessionsPerPeriod   int    `json:"sessionsPerPeriod" binding:"omitempty,gte=1"`
	DurationWeeks       *int   `json:"durationWeeks" binding:"omitempty,gte=1"`
	CustomFrequencyText string `json:"customFrequencyText"`
	Notes               string `json:"notes"`
}

// CreateCarePlanRequest represents the request body for creating a care plan.
type CreateCarePlanRequest struct {
	AppointmentID               string                   `json:"appointmentId" binding:"required,uuid"`
	ClinicalSummary             string                   `json:"clinicalSummary" binding:"required"`
	RecommendationsNotes        string                   `json:"recommendationsNotes"`
	NeurologyFollowupRequired   bool                     `json:"neurologyFollowupRequired"`
	NeurologyFollowupFrequency  string                   `json:"neurologyFollowupFrequency"`
	NeurologyFollowupCustomText string                   `json:"neurologyFollowupCustomText"`
	Status                      models.CarePlanStatus    `json:"status" binding:"omitempty,oneof=draft shared"`
	Services                    []CarePlanServiceRequest `json:"services" binding:"omitempty,dive"`
}

// CreateCarePlan writes the care plan for one of the doctor's completed
// appointments. One plan per appointment.
func (h *CarePlanHandler) CreateCarePlan(c *gin.Context) {
	var req CreateCarePlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var appointment models.Appointment
	err := h.DB.Where("id = ? AND doctor_id = ? AND status = ?",
		req.AppointmentID, doctorID, models.StatusCompleted).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found, not completed, or not yours")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	var count int64
	err = h.DB.Model(&models.CarePlan{}).
		Where("appointment_id = ?", req.AppointmentID).
		Count(&count).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.Conflict(c, "A care plan already exists for this appointment")
		return
	}

	status := req.Status
	if status == "" {
		status = models.CarePlanShared
	}

	plan := models.CarePlan{
		AppointmentID:               appointment.ID,
		PatientID:                   appointment.PatientID,
		DoctorID:                    appointment.DoctorID,
		ClinicalSummary:             req.ClinicalSummary,
		RecommendationsNotes:        req.RecommendationsNotes,
		NeurologyFollowupRequired:   req.NeurologyFollowupRequired,
		NeurologyFollowupFrequency:  req.NeurologyFollowupFrequency,
		NeurologyFollowupCustomText: req.NeurologyFollowupCustomText,
		Status:                      status,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&plan).Error; err != nil {
			return err
		}
		return createCarePlanServices(tx, plan.ID, req.Services)
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to create care plan: "+err.Error())
		return
	}

	if err := h.DB.Preload("Services").First(&plan, "id = ?", plan.ID).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	utils.Created(c, "Care plan created successfully", plan)
}

// GetCarePlanByID returns a care plan to the patient it concerns, the
// doctor who wrote it, or an admin.
func (h *CarePlanHandler) GetCarePlanByID(c *gin.Context) {
	planID := c.Param("id")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Services").Preload("Appointment").Preload("Doctor")
	switch userRole {
	case models.RolePatient:
		query = query.Where("patient_id = ?", userID)
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	}

	var plan models.CarePlan
	if err := query.First(&plan, "care_plans.id = ?", planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Care plan not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Care plan fetched successfully", plan)
}

// GetMyCarePlans returns the calling patient's care plans, newest first.
func (h *CarePlanHandler) GetMyCarePlans(c *gin.Context) {
	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var plans []models.CarePlan
	err := h.DB.Preload("Services").Preload("Appointment").Preload("Doctor").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch care plans: "+err.Error())
		return
	}

	utils.Success(c, "Care plans fetched successfully", plans)
}

// GetDoctorCarePlans returns the care plans the calling doctor has
// written, newest first.
func (h *CarePlanHandler) GetDoctorCarePlans(c *gin.Context) {
	doctorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var plans []models.CarePlan
	err := h.DB.Preload("Services").Preload("Appointment").Preload("Patient").
		Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&plans).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch care plans: "+err.Error())
		return
	}

	utils.Success(c, "Care plans fetched successfully", plans)
}

// UpdateCarePlanRequest represents the request body for updating a care
// plan. A non-nil Services slice replaces the plan's service lines.
type UpdateCarePlanRequest struct {
	ClinicalSummary             *string                  `json:"clinicalSummary"`
	RecommendationsNotes        *string                  `json:"recommendationsNotes"`
	NeurologyFollowupRequired   *bool                    `json:"neurologyFollowupRequired"`
	NeurologyFollowupFrequency  *string                  `json:"neurologyFollowupFrequency"`
	NeurologyFollowupCustomText *string                  `json:"neurologyFollowupCustomText"`
	Status                      *models.CarePlanStatus   `json:"status" binding:"omitempty,oneof=draft shared"`
	Services                    []CarePlanServiceRequest `json:"services" binding:"omitempty,dive"`
}

// UpdateCarePlan lets the doctor who wrote a care plan revise it.
func (h *CarePlanHandler) UpdateCarePlan(c *gin.Context) {
	planID := c.Param("id")

	var req UpdateCarePlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	doctorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var plan models.CarePlan
	err := h.DB.Where("id = ? AND doctor_id = ?", planID, doctorID).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Care plan not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if req.ClinicalSummary != nil {
		plan.ClinicalSummary = *req.ClinicalSummary
	}
	if req.RecommendationsNotes != nil {
		plan.RecommendationsNotes = *req.RecommendationsNotes
	}
	if req.NeurologyFollowupRequired != nil {
		plan.NeurologyFollowupRequired = *req.NeurologyFollowupRequired
	}
	if req.NeurologyFollowupFrequency != nil {
		plan.NeurologyFollowupFrequency = *req.NeurologyFollowupFrequency
	}
	if req.NeurologyFollowupCustomText != nil {
		plan.NeurologyFollowupCustomText = *req.NeurologyFollowupCustomText
	}
	if req.Status != nil {
		plan.Status = *req.Status
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&plan).Error; err != nil {
			return err
		}
		if req.Services == nil {
			return nil
		}
		err := tx.Where("care_plan_id = ?", plan.ID).
			Delete(&models.CarePlanService{}).Error
		if err != nil {
			return err
		}
		return createCarePlanServices(tx, plan.ID, req.Services)
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to update care plan: "+err.Error())
		return
	}

	if err := h.DB.Preload("Services").First(&plan, "id = ?", plan.ID).Error; err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	utils.Success(c, "Care plan updated successfully", plan)
}

// CheckCarePlanExists reports whether an appointment already has a care
// plan. Accessible by the parties to the appointment or an admin.
func (h *CarePlanHandler) CheckCarePlanExists(c *gin.Context) {
	appointmentID := c.Param("appointmentId")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if userRole != models.RoleAdmin && userID != appointment.PatientID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You don't have access to this appointment")
		return
	}

	var plan models.CarePlan
	err := h.DB.Select("id").First(&plan, "appointment_id = ?", appointmentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(c, "No care plan for this appointment", gin.H{
				"exists": false,
			})
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Care plan exists for this appointment", gin.H{
		"exists":     true,
		"carePlanId": plan.ID,
	})
}

func createCarePlanServices(tx *gorm.DB, planID string, services []CarePlanServiceRequest) error {
	for _, svc := range services {
		sessions := svc.SessionsPerPeriod
		if sessions == 0 {
			sessions = 1
		}
		line := models.CarePlanService{
			CarePlanID:          planID,
			ServiceType:         svc.ServiceType,
			Frequency:           svc.Frequency,
			SessionsPerPeriod:   sessions,
			DurationWeeks:       svc.DurationWeeks,
			CustomFrequencyText: svc.CustomFrequencyText,
			Notes:               svc.Notes,
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
	}
	return nil
}
