package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-app-server/internal/billing"
	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// ProductHandler handles the product catalog, purchase history, and
// wallet read surface.
type ProductHandler struct {
	DB *gorm.DB
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(db *gorm.DB) *ProductHandler {
	return &ProductHandler{DB: db}
}

// GetPlans returns the active subscription plans with their service line
// items, cheapest first.
func (h *ProductHandler) GetPlans(c *gin.Context) {
	var plans []models.Product
	err := h.DB.Preload("Services").
		Where("active = ? AND product_type = ?", true, models.ProductSubscriptionPlan).
		Order("price ASC").
		Find(&plans).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch subscription plans: "+err.Error())
		return
	}

	utils.Success(c, "Plans fetched successfully", plans)
}

// GetProducts returns the active products, optionally filtered by type.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	query := h.DB.Preload("Services").Where("active = ?", true)
	if productType := c.Query("productType"); productType != "" {
		query = query.Where("product_type = ?", productType)
	}

	var products []models.Product
	if err := query.Order("product_type, price ASC").Find(&products).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch products: "+err.Error())
		return
	}

	utils.Success(c, "Products fetched successfully", products)
}

// GetProductByID returns one active product with its services.
func (h *ProductHandler) GetProductByID(c *gin.Context) {
	productID := c.Param("id")

	var product models.Product
	err := h.DB.Preload("Services").
		Where("id = ? AND active = ?", productID, true).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Product not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	utils.Success(c, "Product fetched successfully", product)
}

// GetMyPurchases returns the authenticated patient's purchase history
// with the wallet entries of each purchase.
func (h *ProductHandler) GetMyPurchases(c *gin.Context) {
	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var purchases []models.PatientPurchase
	err := h.DB.Preload("Product").Preload("WalletEntries").
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Find(&purchases).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch purchases: "+err.Error())
		return
	}

	utils.Success(c, "Purchases fetched successfully", purchases)
}

// WalletServiceSummary is the per-service projection of the wallet.
type WalletServiceSummary struct {
	ServiceType       string `json:"serviceType"`
	RemainingSessions int    `json:"remainingSessions"`
	AvailableSessions int    `json:"availableSessions"`
	IsLocked          bool   `json:"isLocked"`
	CanBook           bool   `json:"canBook"`
}

// GetMyWallet returns, per service type, the authenticated patient's
// remaining sessions and bookability. A service counts as locked only
// when every entry holding sessions for it is locked.
func (h *ProductHandler) GetMyWallet(c *gin.Context) {
	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var entries []models.WalletEntry
	err := h.DB.
		Joins("JOIN patient_purchases ON patient_purchases.id = patient_service_wallet.purchase_id").
		Where("patient_service_wallet.patient_id = ?", patientID).
		Where("patient_service_wallet.remaining_sessions > 0").
		Where("patient_purchases.status = ?", models.PurchaseActive).
		Order("patient_service_wallet.service_type, patient_service_wallet.created_at ASC").
		Find(&entries).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch wallet: "+err.Error())
		return
	}

	byService := make(map[string]*WalletServiceSummary)
	order := []string{}
	for _, entry := range entries {
		summary, ok := byService[entry.ServiceType]
		if !ok {
			summary = &WalletServiceSummary{ServiceType: entry.ServiceType, IsLocked: true}
			byService[entry.ServiceType] = summary
			order = append(order, entry.ServiceType)
		}
		summary.RemainingSessions += entry.RemainingSessions
		if !entry.IsLocked {
			summary.AvailableSessions += entry.RemainingSessions
			summary.IsLocked = false
			summary.CanBook = true
		}
	}

	wallet := make([]WalletServiceSummary, 0, len(order))
	for _, serviceType := range order {
		wallet = append(wallet, *byService[serviceType])
	}

	utils.Success(c, "Wallet fetched successfully", gin.H{
		"wallet":  wallet,
		"entries": entries,
	})
}

// CancelMyPlanRequest represents the request body for cancelling a plan.
type CancelMyPlanRequest struct {
	PurchaseID string `json:"purchaseId" binding:"required,uuid"`
}

// CancelMyPlan cancels one of the authenticated patient's active
// purchases.
func (h *ProductHandler) CancelMyPlan(c *gin.Context) {
	var req CancelMyPlanRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := billing.CancelPlan(h.DB, patientID, req.PurchaseID); err != nil {
		respondBillingError(c, err)
		return
	}

	utils.Success(c, "Plan cancelled successfully", nil)
}

// ExpirePurchase marks a purchase as expired (admin/system action).
func (h *ProductHandler) ExpirePurchase(c *gin.Context) {
	purchaseID := c.Param("id")

	if err := billing.ExpirePlan(h.DB, purchaseID); err != nil {
		respondBillingError(c, err)
		return
	}

	utils.Success(c, "Purchase expired", nil)
}
