package billing

import (
	"errors"
	"math"

	"gorm.io/gorm"

	"telehealth-app-server/internal/models"
)

// Split is the outcome of dividing a monetary amount between the
// platform and the treating professional. The two parts always sum to
// the original amount: the fee is rounded first and the earning derived
// by subtraction, never rounded independently.
type Split struct {
	PlatformFee         float64 `json:"platformFee"`
	ProfessionalEarning float64 `json:"professionalEarning"`
}

// Policy carries the platform-wide billing constants that apply when no
// product configuration governs a booking.
type Policy struct {
	// DefaultCommissionPercent is the platform's cut of generic
	// doctor-fee appointments with no underlying product.
	DefaultCommissionPercent float64
	// GroupSessionFee is the fixed price of a group session.
	GroupSessionFee float64
}

// DefaultSplit applies the policy fallback rate. Used for paid bookings
// that have no product behind them; the product-configured calculator is
// never invoked for those.
func (p Policy) DefaultSplit(amount float64) Split {
	return splitWithRate(amount, p.DefaultCommissionPercent)
}

// CalculateCommission splits amount according to the product's
// commission configuration. For follow-up visits a product may declare a
// dedicated follow-up rate that overrides the platform rate.
//
// amount = 0 is legal (plan-funded follow-ups) and yields a zero split.
func CalculateCommission(db *gorm.DB, productID string, visitType models.VisitType, amount float64) (Split, error) {
	var product models.Product
	err := db.Where("id = ? AND active = ?", productID, true).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Split{}, ErrProductNotFound
		}
		return Split{}, err
	}

	rate := product.PlatformCommissionPercent
	if visitType == models.VisitFollowup && product.FollowupCommissionPercent != nil {
		rate = *product.FollowupCommissionPercent
	}

	return splitWithRate(amount, rate), nil
}

// CompletionFeeSplit is the fixed 80/20 settlement applied at completion
// time to fee-funded follow-up appointments. It is deliberately a
// separate policy from CalculateCommission: unifying the two would
// change observable payout amounts.
func CompletionFeeSplit(fee float64) Split {
	return splitWithRate(fee, 20)
}

func splitWithRate(amount, ratePercent float64) Split {
	fee := round2(amount * ratePercent / 100)
	return Split{
		PlatformFee:         fee,
		ProfessionalEarning: round2(amount - fee),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
