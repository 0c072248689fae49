package utils

import (
	"time"

	"edumesh/models"
)

// Compact representations used across APIs
type UserShort struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type SchoolShort struct {
	ID   uint   `json:"id"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

type NotificationDTO struct {
	ID        uint        `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uint        `json:"user_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	Data      models.JSON `json:"data,omitempty"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
}

type MessageDTO struct {
	ID          uint        `json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	SenderID    uint        `json:"sender_id"`
	ReceiverID  uint        `json:"receiver_id"`
	Content     string      `json:"content"`
	MessageType string      `json:"message_type"`
	Attachments models.JSON `json:"attachments,omitempty"`
	Read        bool        `json:"read"`
	ReadAt      *time.Time  `json:"read_at,omitempty"`
	Sender      *UserShort  `json:"sender,omitempty"`
	Receiver    *UserShort  `json:"receiver,omitempty"`
}

// ToUserShort maps a user to its compact form.
func ToUserShort(u models.User) UserShort {
	return UserShort{ID: u.ID, Name: u.Name, Role: u.Role, AvatarURL: u.AvatarURL}
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
	}
}

// ToMessageDTO maps a models.Message to the compact DTO.
// Assumptions: caller has preloaded Sender and Receiver when possible.
func ToMessageDTO(m models.Message) MessageDTO {
	dto := MessageDTO{
		ID:          m.ID,
		CreatedAt:   m.CreatedAt,
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		MessageType: m.MessageType,
		Attachments: m.Attachments,
		Read:        m.Read,
		ReadAt:      m.ReadAt,
	}
	if m.Sender.ID != 0 {
		s := ToUserShort(m.Sender)
		dto.Sender = &s
	}
	if m.Receiver.ID != 0 {
		r := ToUserShort(m.Receiver)
		dto.Receiver = &r
	}
	return dto
}
