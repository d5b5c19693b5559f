package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tutorlink/TutorAppBack/internal/models"
)

func TestValidateMessageInput(t *testing.T) {
	url := "https://files.example.com/a.png"
	empty := "   "

	cases := []struct {
		name        string
		text        string
		messageType string
		fileURL     *string
		wantText    string
		wantErr     bool
	}{
		{name: "plain text", text: "Hello", messageType: models.MessageTypeText, wantText: "Hello"},
		{name: "text trimmed", text: "  Hi there \n", messageType: models.MessageTypeText, wantText: "Hi there"},
		{name: "empty text rejected", text: "   ", messageType: models.MessageTypeText, wantErr: true},
		{name: "text too long", text: strings.Repeat("a", 2001), messageType: models.MessageTypeText, wantErr: true},
		{name: "text at limit", text: strings.Repeat("a", 2000), messageType: models.MessageTypeText, wantText: strings.Repeat("a", 2000)},
		{name: "multibyte text at limit", text: strings.Repeat("é", 2000), messageType: models.MessageTypeText, wantText: strings.Repeat("é", 2000)},
		{name: "multibyte text too long", text: strings.Repeat("é", 2001), messageType: models.MessageTypeText, wantErr: true},
		{name: "image with url", text: "", messageType: models.MessageTypeImage, fileURL: &url, wantText: ""},
		{name: "image without url", text: "", messageType: models.MessageTypeImage, wantErr: true},
		{name: "file with blank url", text: "", messageType: models.MessageTypeFile, fileURL: &empty, wantErr: true},
		{name: "file with url", text: "report", messageType: models.MessageTypeFile, fileURL: &url, wantText: "report"},
		{name: "unknown type", text: "Hi", messageType: "sticker", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateMessageInput(tc.text, tc.messageType, tc.fileURL)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.wantText {
				t.Fatalf("expected %q, got %q", tc.wantText, got)
			}
		})
	}
}

func TestConversationParticipantHelpers(t *testing.T) {
	conversation := &models.Conversation{ID: 1, ParticipantA: 3, ParticipantB: 9}

	if got := conversation.OtherParticipant(3); got != 9 {
		t.Fatalf("expected 9, got %d", got)
	}
	if got := conversation.OtherParticipant(9); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}

	if !conversation.HasParticipant(3) || !conversation.HasParticipant(9) {
		t.Fatal("expected both participants to be members")
	}
	if conversation.HasParticipant(5) {
		t.Fatal("expected non-participant to be rejected")
	}
}

func TestFormatChatTimestamp(t *testing.T) {
	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600))
	if got := FormatChatTimestamp(ts); got != "2026-03-01T08:30:00Z" {
		t.Fatalf("unexpected timestamp: %s", got)
	}
}
