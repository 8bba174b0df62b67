package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"telehealth-app-server/internal/billing"
	"telehealth-app-server/internal/config"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/payments"
	"telehealth-app-server/internal/utils"
)

// PaymentHandler creates and confirms Stripe payment intents for product
// purchases and paid appointment bookings. Amounts are always derived
// server side; the client never states a price.
type PaymentHandler struct {
	DB      *gorm.DB
	Cfg     *config.Config
	Gateway *payments.Gateway
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(db *gorm.DB, cfg *config.Config, gateway *payments.Gateway) *PaymentHandler {
	return &PaymentHandler{DB: db, Cfg: cfg, Gateway: gateway}
}

func (h *PaymentHandler) policy() billing.Policy {
	return billing.Policy{
		DefaultCommissionPercent: h.Cfg.Billing.DefaultCommissionPercent,
		GroupSessionFee:          h.Cfg.Billing.GroupSessionFee,
	}
}

// CreateIntentRequest represents the request body for creating a payment
// intent. Kind selects what the payment is for: a product purchase or a
// single paid appointment.
type CreateIntentRequest struct {
	Kind      string `json:"kind" binding:"required,oneof=product appointment"`
	ProductID string `json:"productId" binding:"omitempty,uuid"`

	DoctorID       string `json:"doctorId" binding:"omitempty,uuid"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	AppointmentFor string `json:"appointmentFor"`
	ServiceType    string `json:"serviceType"`
	Reason         string `json:"reason"`
	Notes          string `json:"notes"`
}

// CreatePaymentIntent creates a Stripe payment intent whose metadata
// carries everything needed to settle the purchase or booking once the
// payment succeeds.
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	var req CreateIntentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var amount float64
	metadata := map[string]string{
		"kind":       req.Kind,
		"patient_id": patientID,
	}

	switch req.Kind {
	case "product":
		if req.ProductID == "" {
			utils.BadRequest(c, "productId is required for product payments")
			return
		}
		var product models.Product
		err := h.DB.Where("id = ? AND active = ?", req.ProductID, true).First(&product).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFound(c, "Product not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		amount = product.Price
		metadata["product_id"] = product.ID

	case "appointment":
		if req.DoctorID == "" || req.Date == "" || req.Time == "" {
			utils.BadRequest(c, "doctorId, date and time are required for appointment payments")
			return
		}
		var doctor models.User
		err := h.DB.Where("id = ? AND role = ? AND active = ?",
			req.DoctorID, models.RoleDoctor, true).First(&doctor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				utils.NotFound(c, "Doctor not found")
			} else {
				utils.InternalServerError(c, "Database error: "+err.Error())
			}
			return
		}
		amount = doctor.Fee
		if req.ServiceType == models.ServiceGroupSession {
			amount = h.Cfg.Billing.GroupSessionFee
		}
		metadata["doctor_id"] = req.DoctorID
		metadata["date"] = req.Date
		metadata["time"] = req.Time
		metadata["appointment_for"] = req.AppointmentFor
		metadata["service_type"] = req.ServiceType
		metadata["reason"] = req.Reason
		metadata["notes"] = req.Notes
	}

	if amount <= 0 {
		utils.BadRequest(c, "Nothing to pay for this request")
		return
	}

	intent, err := h.Gateway.CreateIntent(amount, metadata)
	if err != nil {
		if errors.Is(err, payments.ErrDisabled) {
			utils.InternalServerError(c, "Payments are not configured")
			return
		}
		utils.InternalServerError(c, "Failed to create payment intent: "+err.Error())
		return
	}

	utils.Created(c, "Payment intent created", gin.H{
		"paymentIntentId": intent.ID,
		"clientSecret":    intent.ClientSecret,
		"amount":          amount,
	})
}

// ConfirmPaymentRequest represents the request body for confirming a
// payment intent.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// ConfirmPayment verifies that the intent succeeded at Stripe and then
// settles it: product intents become purchases with wallet fan-out,
// appointment intents become accepted paid appointments. Confirming the
// same intent twice returns the already settled result.
func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	var req ConfirmPaymentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	intent, err := h.Gateway.RetrieveIntent(req.PaymentIntentID)
	if err != nil {
		if errors.Is(err, payments.ErrDisabled) {
			utils.InternalServerError(c, "Payments are not configured")
			return
		}
		utils.BadRequest(c, "Failed to retrieve payment intent: "+err.Error())
		return
	}
	if !payments.Succeeded(intent) {
		utils.BadRequest(c, "Payment has not succeeded")
		return
	}
	if intent.Metadata["patient_id"] != patientID {
		utils.Forbidden(c, "Payment belongs to another user")
		return
	}

	switch intent.Metadata["kind"] {
	case "product":
		result, err := billing.ConfirmPurchase(h.DB, patientID, intent.Metadata["product_id"], "stripe")
		if err != nil {
			respondBillingError(c, err)
			return
		}
		if result.Replayed {
			utils.Success(c, "Purchase already settled", result)
			return
		}
		utils.Created(c, "Purchase settled successfully", result)

	case "appointment":
		result, err := billing.CreateBooking(h.DB, h.policy(), billing.BookingRequest{
			PatientID:        patientID,
			DoctorID:         intent.Metadata["doctor_id"],
			Date:             intent.Metadata["date"],
			Time:             intent.Metadata["time"],
			AppointmentFor:   intent.Metadata["appointment_for"],
			ServiceType:      intent.Metadata["service_type"],
			Reason:           intent.Metadata["reason"],
			Notes:            intent.Metadata["notes"],
			PaymentMethod:    "stripe",
			PaymentConfirmed: true,
			PaymentIntentID:  intent.ID,
		})
		if err != nil {
			logrus.WithError(err).WithField("payment_intent_id", intent.ID).
				Error("failed to book appointment for a succeeded payment")
			respondBillingError(c, err)
			return
		}
		if result.Replayed {
			utils.Success(c, "Appointment already booked", result)
			return
		}
		utils.Created(c, "Appointment booked successfully", result)

	default:
		utils.BadRequest(c, "Unknown payment kind")
	}
}
