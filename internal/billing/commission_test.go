package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telehealth-app-server/internal/models"
)

func TestSplitWithRateSumsToAmount(t *testing.T) {
	cases := []struct {
		name    string
		amount  float64
		rate    float64
		wantFee float64
	}{
		{"twenty percent of 100", 100, 20, 20},
		{"twenty percent of 99.99", 99.99, 20, 20},
		{"ten percent of 33.33", 33.33, 10, 3.33},
		{"fifteen percent of 80", 80, 15, 12},
		{"zero amount", 0, 20, 0},
		{"zero rate", 50, 0, 0},
		{"full rate", 80, 100, 80},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split := splitWithRate(tc.amount, tc.rate)
			assert.Equal(t, tc.wantFee, split.PlatformFee)
			assert.InDelta(t, tc.amount, split.PlatformFee+split.ProfessionalEarning, 1e-9,
				"fee and earning must sum to the amount")
		})
	}
}

func TestCompletionFeeSplit(t *testing.T) {
	split := CompletionFeeSplit(100)
	assert.Equal(t, 20.0, split.PlatformFee)
	assert.Equal(t, 80.0, split.ProfessionalEarning)

	split = CompletionFeeSplit(49.95)
	assert.Equal(t, 9.99, split.PlatformFee)
	assert.Equal(t, 39.96, split.ProfessionalEarning)
}

func TestPolicyDefaultSplit(t *testing.T) {
	split := testPolicy().DefaultSplit(50)
	assert.Equal(t, 10.0, split.PlatformFee)
	assert.Equal(t, 40.0, split.ProfessionalEarning)
}

func TestCalculateCommissionUsesProductRate(t *testing.T) {
	db := setupTestDB(t)
	product := &models.Product{
		Name:                      "Plan",
		ProductType:               models.ProductSubscriptionPlan,
		Price:                     200,
		PlatformCommissionPercent: 30,
		Active:                    true,
	}
	require.NoError(t, db.Create(product).Error)

	split, err := CalculateCommission(db, product.ID, models.VisitFirst, 200)
	require.NoError(t, err)
	assert.Equal(t, 60.0, split.PlatformFee)
	assert.Equal(t, 140.0, split.ProfessionalEarning)
}

func TestCalculateCommissionFollowupOverride(t *testing.T) {
	db := setupTestDB(t)
	followupRate := 10.0
	product := &models.Product{
		Name:                      "Plan",
		ProductType:               models.ProductSubscriptionPlan,
		Price:                     200,
		PlatformCommissionPercent: 30,
		FollowupCommissionPercent: &followupRate,
		Active:                    true,
	}
	require.NoError(t, db.Create(product).Error)

	first, err := CalculateCommission(db, product.ID, models.VisitFirst, 100)
	require.NoError(t, err)
	assert.Equal(t, 30.0, first.PlatformFee)

	followup, err := CalculateCommission(db, product.ID, models.VisitFollowup, 100)
	require.NoError(t, err)
	assert.Equal(t, 10.0, followup.PlatformFee)
	assert.Equal(t, 90.0, followup.ProfessionalEarning)
}

func TestCalculateCommissionZeroAmount(t *testing.T) {
	db := setupTestDB(t)
	product := createPlan(t, db, 150, serviceSpec{serviceType: models.ServicePsychology, sessions: 2})

	split, err := CalculateCommission(db, product.ID, models.VisitFollowup, 0)
	require.NoError(t, err)
	assert.Zero(t, split.PlatformFee)
	assert.Zero(t, split.ProfessionalEarning)
}

func TestCalculateCommissionUnknownProduct(t *testing.T) {
	db := setupTestDB(t)

	_, err := CalculateCommission(db, "00000000-0000-0000-0000-000000000000", models.VisitFirst, 100)
	assert.ErrorIs(t, err, ErrProductNotFound)
}
