package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"
)

// TransactionHandler exposes the financial ledger, scoped to the caller:
// patients see their own payments, doctors their attributed earnings,
// admins everything.
type TransactionHandler struct {
	DB *gorm.DB
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{DB: db}
}

// GetTransactions returns the ledger records visible to the caller,
// newest first. Optional filters: type, status.
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Model(&models.Transaction{})
	switch userRole {
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
		// unscoped
	default:
		query = query.Where("patient_id = ?", userID)
	}

	if txType := c.Query("type"); txType != "" {
		query = query.Where("type = ?", txType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Find(&transactions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch transactions: "+err.Error())
		return
	}

	utils.Success(c, "Transactions fetched successfully", transactions)
}

// GetTransactionByID returns a single ledger record if the caller is a
// party to it.
func (h *TransactionHandler) GetTransactionByID(c *gin.Context) {
	transactionID := c.Param("id")

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var transaction models.Transaction
	if err := h.DB.First(&transaction, "id = ?", transactionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Transaction not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	isDoctor := transaction.DoctorID != nil && *transaction.DoctorID == userID
	if userRole != models.RoleAdmin && transaction.PatientID != userID && !isDoctor {
		utils.Forbidden(c, "You don't have access to this transaction")
		return
	}

	utils.Success(c, "Transaction fetched successfully", transaction)
}
