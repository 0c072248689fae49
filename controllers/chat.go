package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"edumesh/database"
	"edumesh/middleware"
	"edumesh/models"
	"edumesh/services/notifications"
	"edumesh/services/websocket"
	"edumesh/utils"
)

type ChatController struct {
	notifier *notifications.Service
	hub      *websocket.Hub
}

func NewChatController(notifier *notifications.Service, hub *websocket.Hub) *ChatController {
	return &ChatController{notifier: notifier, hub: hub}
}

// CanChat encodes who may message whom. Admins talk to anyone; parents and
// students reach staff only, not each other.
func CanChat(senderRole, receiverRole string) bool {
	if senderRole == models.RoleAdmin || receiverRole == models.RoleAdmin {
		return true
	}
	if senderRole == models.RoleTeacher || receiverRole == models.RoleTeacher {
		return true
	}
	return false
}

// Conversations lists the caller's chat partners with their latest message
// and unread count, newest first.
func (cc *ChatController) Conversations(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var messages []models.Message
	if err := database.DB.
		Where("school_id = ? AND (sender_id = ? OR receiver_id = ?)", user.SchoolID, user.ID, user.ID).
		Preload("Sender").Preload("Receiver").
		Order("created_at DESC").
		Limit(1000).
		Find(&messages).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch conversations")
	}

	return utils.Success(c, fiber.Map{
		"conversations": GroupConversations(messages, user.ID),
	})
}

// Conversation is a chat partner plus the most recent exchange.
type Conversation struct {
	PartnerID   uint             `json:"partner_id"`
	Partner     *utils.UserShort `json:"partner,omitempty"`
	LastMessage utils.MessageDTO `json:"last_message"`
	UnreadCount int              `json:"unread_count"`
}

// GroupConversations folds a newest-first message list into one entry per
// partner. Unread counts incoming unread messages only.
func GroupConversations(messages []models.Message, selfID uint) []Conversation {
	index := map[uint]int{}
	out := []Conversation{}
	for _, msg := range messages {
		partnerID := msg.SenderID
		partner := msg.Sender
		if partnerID == selfID {
			partnerID = msg.ReceiverID
			partner = msg.Receiver
		}

		i, seen := index[partnerID]
		if !seen {
			conv := Conversation{
				PartnerID:   partnerID,
				LastMessage: utils.ToMessageDTO(msg),
			}
			if partner.ID != 0 {
				short := utils.ToUserShort(partner)
				conv.Partner = &short
			}
			index[partnerID] = len(out)
			out = append(out, conv)
			i = index[partnerID]
		}
		if msg.ReceiverID == selfID && !msg.Read {
			out[i].UnreadCount++
		}
	}
	return out
}

// History returns messages exchanged with one user and marks the incoming
// ones read.
func (cc *ChatController) History(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	partnerID, err := strconv.ParseUint(c.Params("userId"), 10, 32)
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var partner models.User
	if err := database.DB.Where("id = ? AND school_id = ?", uint(partnerID), user.SchoolID).
		First(&partner).Error; err != nil {
		return utils.Error(c, fiber.StatusNotFound, "User not found")
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var messages []models.Message
	if err := database.DB.
		Where("school_id = ? AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			user.SchoolID, user.ID, partner.ID, partner.ID, user.ID).
		Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&messages).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch messages")
	}

	// Mark incoming messages read
	now := time.Now()
	database.DB.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND read = ?", partner.ID, user.ID, false).
		Updates(map[string]interface{}{"read": true, "read_at": &now})

	dtos := make([]utils.MessageDTO, 0, len(messages))
	for _, msg := range messages {
		dtos = append(dtos, utils.ToMessageDTO(msg))
	}
	return utils.Success(c, fiber.Map{
		"partner":  utils.ToUserShort(partner),
		"messages": dtos,
	})
}

// Send persists a message, notifies the receiver and pushes it over the
// socket.
func (cc *ChatController) Send(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var req struct {
		ReceiverID  uint        `json:"receiver_id" validate:"required"`
		Content     string      `json:"content" validate:"required,min=1,max=5000"`
		MessageType string      `json:"message_type" validate:"omitempty,oneof=text image file"`
		Attachments models.JSON `json:"attachments"`
	}
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if errs := utils.ValidateStruct(req); errs != nil {
		return utils.ValidationError(c, errs)
	}

	message, status, msg := cc.deliver(user, req.ReceiverID, req.Content, req.MessageType, req.Attachments)
	if status != 0 {
		return utils.Error(c, status, msg)
	}
	return utils.Created(c, "Message sent", fiber.Map{"message": utils.ToMessageDTO(*message)})
}

// deliver is the shared send path for REST and socket traffic. Returns a
// non-zero status with a message on failure.
func (cc *ChatController) deliver(sender *models.User, receiverID uint, content, messageType string, attachments models.JSON) (*models.Message, int, string) {
	if receiverID == sender.ID {
		return nil, fiber.StatusBadRequest, "Cannot message yourself"
	}

	var receiver models.User
	if err := database.DB.
		Where("id = ? AND school_id = ? AND active = ?", receiverID, sender.SchoolID, true).
		First(&receiver).Error; err != nil {
		return nil, fiber.StatusNotFound, "Recipient not found"
	}
	if !CanChat(sender.Role, receiver.Role) {
		return nil, fiber.StatusForbidden, "You cannot message this user"
	}

	if messageType == "" {
		messageType = "text"
	}
	message := models.Message{
		SchoolID:    sender.SchoolID,
		SenderID:    sender.ID,
		ReceiverID:  receiver.ID,
		Content:     utils.SanitizeString(content),
		MessageType: messageType,
		Attachments: attachments,
	}
	if err := database.DB.Create(&message).Error; err != nil {
		logrus.WithError(err).Error("Failed to persist message")
		return nil, fiber.StatusInternalServerError, "Failed to send message"
	}
	message.Sender = *sender
	message.Receiver = receiver

	// Socket push plus inbox notification, both best effort
	if cc.hub != nil {
		cc.hub.BroadcastToUser(receiver.ID, fiber.Map{
			"event": "new_message",
			"data":  utils.ToMessageDTO(message),
		})
		cc.hub.BroadcastToUser(sender.ID, fiber.Map{
			"event": "message_sent",
			"data":  utils.ToMessageDTO(message),
		})
	}
	cc.notifier.FanOut(context.Background(), []uint{receiver.ID}, notifications.Payload{
		SchoolID: sender.SchoolID,
		Type:     models.NotificationTypeMessage,
		Title:    "Message from " + sender.Name,
		Body:     truncate(message.Content, 120),
		Data:     models.JSON(fmt.Sprintf(`{"message_id": %d, "sender_id": %d}`, message.ID, sender.ID)),
	})

	return &message, 0, ""
}

// ChatUsers lists people the caller may start a conversation with.
func (cc *ChatController) ChatUsers(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "User not found")
	}

	var users []models.User
	if err := database.DB.
		Where("school_id = ? AND id <> ? AND active = ?", user.SchoolID, user.ID, true).
		Order("name ASC").
		Find(&users).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "Failed to fetch users")
	}

	out := make([]utils.UserShort, 0, len(users))
	for _, u := range users {
		if CanChat(user.Role, u.Role) {
			out = append(out, utils.ToUserShort(u))
		}
	}
	return utils.Success(c, fiber.Map{"users": out})
}

// HandleSocketEvent processes inbound websocket frames for chat.
func (cc *ChatController) HandleSocketEvent(userID, schoolID uint, role string, event websocket.InboundEvent) {
	switch event.Event {
	case "send_message":
		var payload struct {
			ReceiverID  uint   `json:"receiver_id"`
			Content     string `json:"content"`
			MessageType string `json:"message_type"`
		}
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			logrus.WithError(err).Warn("Malformed send_message frame")
			return
		}
		var sender models.User
		if err := database.DB.First(&sender, userID).Error; err != nil {
			return
		}
		if payload.Content == "" {
			return
		}
		if _, status, msg := cc.deliver(&sender, payload.ReceiverID, payload.Content, payload.MessageType, nil); status != 0 {
			logrus.WithFields(logrus.Fields{"user_id": userID, "status": status}).Debug(msg)
		}

	case "typing":
		var payload struct {
			ReceiverID uint `json:"receiver_id"`
			Typing     bool `json:"typing"`
		}
		if err := json.Unmarshal(event.Data, &payload); err != nil {
			return
		}
		if cc.hub != nil && payload.ReceiverID != 0 {
			cc.hub.BroadcastToUser(payload.ReceiverID, fiber.Map{
				"event": "user_typing",
				"data": fiber.Map{
					"user_id": userID,
					"typing":  payload.Typing,
				},
			})
		}
	}
}

// truncate shortens s to n runes. Cutting bytes could split a multi-byte
// character and leave invalid UTF-8 in a notification body.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
