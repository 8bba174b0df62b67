package models

// ProductType enumerates the purchasable offering kinds.
type ProductType string

const (
	ProductSubscriptionPlan ProductType = "subscription_plan"
	ProductSingleService    ProductType = "single_service"
	ProductPackage          ProductType = "package"
	ProductGroupSession     ProductType = "group_session"
)

// Service types sold on the platform.
const (
	ServiceNeurology     = "neurology"
	ServicePhysiotherapy = "physiotherapy"
	ServicePsychology    = "psychology"
	ServiceNutrition     = "nutrition"
	ServiceCoaching      = "coaching"
	ServiceGroupSession  = "group_session"
)

// Gate values for ProductService.UnlockAfterService.
const (
	UnlockGateNone      = "none"
	UnlockGateNeurology = ServiceNeurology
)

// Product is a purchasable offering. Products are never deleted, only
// deactivated, so purchases keep a valid reference.
type Product struct {
	BaseModel
	Name        string      `gorm:"size:255;not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	ProductType ProductType `gorm:"size:30;index" json:"productType"`
	Price       float64     `gorm:"not null" json:"price"`

	// PlatformCommissionPercent is the platform's cut of every settlement
	// against this product. FollowupCommissionPercent, when set, overrides
	// it for follow-up visits.
	PlatformCommissionPercent float64  `gorm:"default:20" json:"platformCommissionPercent"`
	FollowupCommissionPercent *float64 `json:"followupCommissionPercent,omitempty"`

	RequiresInitialNeuro bool `gorm:"default:false" json:"requiresInitialNeuro"`
	Active               bool `gorm:"default:true" json:"active"`

	// Relations
	Services []ProductService `gorm:"foreignKey:ProductID" json:"services,omitempty"`
}

// ProductService is a line item of a Product: a service type with a
// session entitlement and its initial lock state.
type ProductService struct {
	BaseModel
	ProductID    string `gorm:"size:36;index" json:"productId"`
	ServiceType  string `gorm:"size:50;index" json:"serviceType"`
	SessionCount int    `gorm:"not null" json:"sessionCount"`
	IsLocked     bool   `gorm:"default:false" json:"isLocked"`
	// UnlockAfterService names the gating service that clears the lock,
	// or "none".
	UnlockAfterService string `gorm:"size:50;default:'none'" json:"unlockAfterService"`

	Product Product `gorm:"foreignKey:ProductID" json:"-"`
}
