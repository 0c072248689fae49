package controllers

import (
	"testing"
	"unicode/utf8"

	"edumesh/models"
)

func TestCanChat(t *testing.T) {
	tests := []struct {
		sender   string
		receiver string
		want     bool
	}{
		{models.RoleAdmin, models.RoleStudent, true},
		{models.RoleParent, models.RoleAdmin, true},
		{models.RoleTeacher, models.RoleParent, true},
		{models.RoleStudent, models.RoleTeacher, true},
		{models.RoleParent, models.RoleStudent, false},
		{models.RoleStudent, models.RoleStudent, false},
		{models.RoleParent, models.RoleParent, false},
	}
	for _, tt := range tests {
		if got := CanChat(tt.sender, tt.receiver); got != tt.want {
			t.Errorf("CanChat(%s, %s) = %v, want %v", tt.sender, tt.receiver, got, tt.want)
		}
	}
}

func TestGroupConversations(t *testing.T) {
	self := uint(1)
	alice := models.User{BaseModel: models.BaseModel{ID: 2}, Name: "Alice", Role: models.RoleTeacher}
	bob := models.User{BaseModel: models.BaseModel{ID: 3}, Name: "Bob", Role: models.RoleAdmin}

	// Newest first, as the query returns them
	messages := []models.Message{
		{BaseModel: models.BaseModel{ID: 30}, SenderID: 3, ReceiverID: 1, Content: "latest from bob", Sender: bob, Read: false},
		{BaseModel: models.BaseModel{ID: 21}, SenderID: 2, ReceiverID: 1, Content: "latest from alice", Sender: alice, Read: false},
		{BaseModel: models.BaseModel{ID: 20}, SenderID: 1, ReceiverID: 2, Content: "to alice", Receiver: alice, Read: true},
		{BaseModel: models.BaseModel{ID: 19}, SenderID: 2, ReceiverID: 1, Content: "older from alice", Sender: alice, Read: false},
	}

	convs := GroupConversations(messages, self)
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(convs))
	}

	if convs[0].PartnerID != 3 {
		t.Errorf("expected newest conversation first (partner 3), got %d", convs[0].PartnerID)
	}
	if convs[0].LastMessage.ID != 30 {
		t.Errorf("expected last message 30, got %d", convs[0].LastMessage.ID)
	}
	if convs[0].UnreadCount != 1 {
		t.Errorf("expected 1 unread from bob, got %d", convs[0].UnreadCount)
	}

	if convs[1].PartnerID != 2 {
		t.Fatalf("expected second conversation with partner 2, got %d", convs[1].PartnerID)
	}
	if convs[1].LastMessage.ID != 21 {
		t.Errorf("expected last message 21, got %d", convs[1].LastMessage.ID)
	}
	// Two incoming unread; the outgoing read message does not count
	if convs[1].UnreadCount != 2 {
		t.Errorf("expected 2 unread from alice, got %d", convs[1].UnreadCount)
	}
	if convs[1].Partner == nil || convs[1].Partner.Name != "Alice" {
		t.Errorf("expected partner profile for Alice, got %+v", convs[1].Partner)
	}
}

func TestGroupConversationsEmpty(t *testing.T) {
	if got := GroupConversations(nil, 1); len(got) != 0 {
		t.Errorf("expected no conversations, got %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("short string should be unchanged, got %q", got)
	}
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("expected truncation with ellipsis, got %q", got)
	}
	if got := truncate("नमस्ते दुनिया", 6); got != "नमस्ते..." {
		t.Errorf("expected rune-boundary truncation, got %q", got)
	}
	if got := truncate("สวัสดีครับ", 4); !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
}
