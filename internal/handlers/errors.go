package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"telehealth-app-server/internal/billing"
	"telehealth-app-server/internal/utils"
)

// respondBillingError maps billing sentinel errors onto the response
// envelope. Unknown errors mean the enclosing transaction rolled back
// and report as 500.
func respondBillingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, billing.ErrInvalidDate),
		errors.Is(err, billing.ErrInvalidTime),
		errors.Is(err, billing.ErrPastDate),
		errors.Is(err, billing.ErrServiceTypeUnknown):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, billing.ErrDoctorNotFound),
		errors.Is(err, billing.ErrProductNotFound),
		errors.Is(err, billing.ErrAppointmentNotFound),
		errors.Is(err, billing.ErrPurchaseNotActive):
		utils.NotFound(c, err.Error())
	case errors.Is(err, billing.ErrSlotTaken):
		utils.Conflict(c, err.Error())
	case errors.Is(err, billing.ErrPaymentRequired):
		utils.PaymentRequired(c, err.Error())
	case errors.Is(err, billing.ErrNoAvailableSessions):
		utils.Forbidden(c, err.Error())
	default:
		utils.InternalServerError(c, "Operation failed: "+err.Error())
	}
}
