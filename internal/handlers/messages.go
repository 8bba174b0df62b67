package handlers

import (
	"time"

	"telehealth-app-server/internal/middleware"
	"telehealth-app-server/internal/models"
	"telehealth-app-server/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageHandler handles messaging related requests.
type MessageHandler struct {
	DB *gorm.DB
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(db *gorm.DB) *MessageHandler {
	return &MessageHandler{DB: db}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	RecipientID     string `json:"recipientId" binding:"required,uuid"`
	Content         string `json:"content" binding:"required"`
	Subject         string `json:"subject"`
	ParentMessageID string `json:"parentMessageId" binding:"omitempty,uuid"`
}

// SendMessage handles sending a new message. Patients and doctors can
// message each other; admins can message anyone.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	senderID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Sender ID not found in token")
		return
	}
	if senderID == req.RecipientID {
		utils.BadRequest(c, "Cannot send a message to yourself.")
		return
	}

	var recipient models.User
	if err := h.DB.First(&recipient, "id = ?", req.RecipientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Recipient user not found")
		} else {
			utils.InternalServerError(c, "Database error verifying recipient: "+err.Error())
		}
		return
	}

	senderRole, _ := middleware.GetUserRoleFromContext(c)
	allowedToMessage := (senderRole == models.RolePatient && recipient.Role == models.RoleDoctor) ||
		(senderRole == models.RoleDoctor && recipient.Role == models.RolePatient) ||
		senderRole == models.RoleAdmin || recipient.Role == models.RoleAdmin
	if !allowedToMessage {
		utils.Forbidden(c, "You are not authorized to send a message to this user.")
		return
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: req.RecipientID,
		Content:    req.Content,
		Subject:    req.Subject,
		Status:     models.MessageStatusSent,
	}
	if req.ParentMessageID != "" {
		message.ParentID = req.ParentMessageID
	}

	if err := h.DB.Create(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to send message: "+err.Error())
		return
	}

	utils.Created(c, "Message sent successfully", message)
}

// GetMessagesForUser handles fetching messages for the logged-in user,
// optionally scoped to the conversation with one other user.
func (h *MessageHandler) GetMessagesForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var messages []models.Message
	query := h.DB.Preload("Sender").Preload("Receiver").Order("created_at asc")

	if otherUserID := c.Query("withUser"); otherUserID != "" {
		if _, err := uuid.Parse(otherUserID); err != nil {
			utils.BadRequest(c, "Invalid 'withUser' ID format")
			return
		}
		query = query.Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			userID, otherUserID, otherUserID, userID)
	} else {
		query = query.Where("sender_id = ? OR receiver_id = ?", userID, userID)
	}

	if err := query.Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	// Fetching a conversation marks the received messages as read.
	for i, msg := range messages {
		if msg.ReceiverID == userID && msg.Status == models.MessageStatusSent {
			messages[i].Status = models.MessageStatusRead
			h.DB.Model(&messages[i]).Update("status", models.MessageStatusRead)
		}
	}

	utils.Success(c, "Messages fetched successfully", messages)
}

// GetConversations handles fetching a list of conversations for the
// user: one preview per conversation partner, with the latest message
// and the unread count.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var conversationPartners []struct {
		PartnerID string `gorm:"column:partner_id"`
	}
	err := h.DB.Raw(`
		SELECT DISTINCT partner_id FROM (
			SELECT receiver_id as partner_id FROM messages WHERE sender_id = ?
			UNION
			SELECT sender_id as partner_id FROM messages WHERE receiver_id = ?
		) AS partners
	`, userID, userID).Scan(&conversationPartners).Error
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch conversation partners: "+err.Error())
		return
	}

	type ConversationPreview struct {
		Partner     models.UserSanitized `json:"partner"`
		LastMessage models.Message       `json:"lastMessage"`
		UnreadCount int64                `json:"unreadCount"`
	}
	var previews []ConversationPreview

	for _, cp := range conversationPartners {
		var partnerUser models.User
		if err := h.DB.First(&partnerUser, "id = ?", cp.PartnerID).Error; err != nil {
			continue
		}

		var lastMessage models.Message
		err := h.DB.Preload("Sender").Preload("Receiver").
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, cp.PartnerID, cp.PartnerID, userID).
			Order("created_at desc").First(&lastMessage).Error
		if err != nil {
			continue
		}

		var unreadCount int64
		h.DB.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND status = ?", cp.PartnerID, userID, models.MessageStatusSent).
			Count(&unreadCount)

		previews = append(previews, ConversationPreview{
			Partner:     partnerUser.Sanitize(),
			LastMessage: lastMessage,
			UnreadCount: unreadCount,
		})
	}

	utils.Success(c, "Conversations fetched successfully", previews)
}

// MarkMessageAsRead handles marking a specific message as read.
func (h *MessageHandler) MarkMessageAsRead(c *gin.Context) {
	messageID := c.Param("messageId")
	if _, err := uuid.Parse(messageID); err != nil {
		utils.BadRequest(c, "Invalid Message ID format")
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var message models.Message
	if err := h.DB.First(&message, "id = ?", messageID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Message not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	// Only the recipient can mark a message as read
	if message.ReceiverID != userID {
		utils.Forbidden(c, "You are not authorized to mark this message as read.")
		return
	}

	if message.Status == models.MessageStatusRead {
		utils.Success(c, "Message already marked as read", message)
		return
	}

	message.Status = models.MessageStatusRead
	if err := h.DB.Save(&message).Error; err != nil {
		utils.InternalServerError(c, "Failed to update message status: "+err.Error())
		return
	}

	utils.Success(c, "Message marked as read successfully", message)
}

// NewMessagesRequest represents the query params for getting new messages
type NewMessagesRequest struct {
	Since string `form:"since" binding:"required"`
}

// GetNewMessages handles fetching messages that arrived since a given
// RFC3339 timestamp. Used by the client for polling.
func (h *MessageHandler) GetNewMessages(c *gin.Context) {
	var req NewMessagesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		utils.BadRequest(c, "Invalid request: "+err.Error())
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User ID not found in context")
		return
	}

	sinceTime, err := time.Parse(time.RFC3339, req.Since)
	if err != nil {
		utils.BadRequest(c, "Invalid timestamp format. Use RFC3339 format (e.g., 2006-01-02T15:04:05Z07:00)")
		return
	}

	var messages []models.Message
	if err := h.DB.Preload("Sender").Preload("Receiver").
		Where("(receiver_id = ? OR sender_id = ?) AND created_at > ?", userID, userID, sinceTime).
		Order("created_at DESC").
		Find(&messages).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch messages: "+err.Error())
		return
	}

	utils.Success(c, "New messages fetched successfully", messages)
}
