package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// ReviewHandler handles doctor reviews.
type ReviewHandler struct {
	DB *gorm.DB
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(db *gorm.DB) *ReviewHandler {
	return &ReviewHandler{DB: db}
}

// SubmitReviewRequest represents the request body for submitting a review.
type SubmitReviewRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Comment       string `json:"comment"`
}

// SubmitReview records the patient's rating for one of their accepted or
// completed appointments. One review per appointment.
func (h *ReviewHandler) SubmitReview(c *gin.Context) {
	var req SubmitReviewRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var appointment models.Appointment
	err := h.DB.Where("id = ? AND patient_id = ?", req.AppointmentID, patientID).
		First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if appointment.Status != models.StatusAccepted && appointment.Status != models.StatusCompleted {
		utils.BadRequest(c, "Only accepted or completed appointments can be reviewed")
		return
	}

	var count int64
	err = h.DB.Model(&models.Review{}).
		Where("appointment_id = ?", req.AppointmentID).
		Count(&count).Error
	if err != nil {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}
	if count > 0 {
		utils.Conflict(c, "This appointment has already been reviewed")
		return
	}

	review := models.Review{
		DoctorID:      appointment.DoctorID,
		PatientID:     patientID,
		AppointmentID: req.AppointmentID,
		Rating:        req.Rating,
		Comment:       req.Comment,
	}
	if err := h.DB.Create(&review).Error; err != nil {
		utils.InternalServerError(c, "Failed to create review: "+err.Error())
		return
	}

	utils.Created(c, "Review submitted successfully", review)
}

// GetAppointmentReview returns the review attached to an appointment, if
// the caller is a party to the appointment.
func (h *ReviewHandler) GetAppointmentReview(c *gin.Context) {
	appointmentID := c.Param("id")

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

	var review models.Review
	if err := h.DB.First(&review, "appointment_id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "No review for this appointment")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Review fetched successfully", review)
}

// GetDoctorReviews returns the reviews for a doctor, newest first, with
// the average rating.
func (h *ReviewHandler) GetDoctorReviews(c *gin.Context) {
	doctorID := c.Param("id")

	var reviews []models.Review
	err := h.DB.Where("doctor_id = ?", doctorID).
		Order("created_at DESC").
		Find(&reviews).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch reviews: "+err.Error())
		return
	}

	var average float64
	if len(reviews) > 0 {
		for _, r := range reviews {
			average += float64(r.Rating)
		}
		average /= float64(len(reviews))
	}

	utils.Success(c, "Reviews fetched successfully", gin.H{
		"reviews":       reviews,
		"averageRating": average,
		"count":         len(reviews),
	})
}
