// Package messaging stores direct messages between users.
package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/validation"
)

// Message is append-only once sent.
type Message struct {
	ID             string    `json:"id"`
	SenderID       string    `json:"sender_id"`
	RecipientID    string    `json:"recipient_id"`
	Body           string    `json:"body"`
	RelatedOrderID *string   `json:"related_order_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type SendRequest struct {
	RecipientID    string  `json:"recipient_id" validate:"required"`
	Body           string  `json:"body" validate:"required"`
	RelatedOrderID *string `json:"related_order_id"`
}

type Service struct {
	store store.Store
	log   logrus.FieldLogger
}

func NewService(st store.Store, log logrus.FieldLogger) *Service {
	return &Service{store: st, log: log}
}

// Send stores a message from caller to the recipient.
func (s *Service) Send(ctx context.Context, caller identity.Caller, req SendRequest) (Message, error) {
	req.RecipientID = strings.TrimSpace(req.RecipientID)
	if strings.TrimSpace(req.Body) == "" {
		req.Body = ""
	}
	if err := validation.Struct(req); err != nil {
		return Message{}, err
	}

	m := Message{
		SenderID:       caller.ID,
		RecipientID:    req.RecipientID,
		Body:           req.Body,
		RelatedOrderID: req.RelatedOrderID,
	}
	rec, err := s.store.Create(ctx, store.Messages, m)
	if err != nil {
		return Message{}, fmt.Errorf("create message: %w", err)
	}
	m.ID, m.CreatedAt = rec.ID, rec.CreatedAt

	s.log.WithFields(logrus.Fields{
		"message_id":   m.ID,
		"sender_id":    m.SenderID,
		"recipient_id": m.RecipientID,
	}).Debug("message sent")
	return m, nil
}

// Inbox returns messages addressed to caller, newest first.
func (s *Service) Inbox(ctx context.Context, caller identity.Caller) ([]Message, error) {
	recs, err := s.store.FindMany(ctx, store.Messages, store.Where(store.Eq("recipient_id", caller.ID)), store.FindOptions{})
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]Message, 0, len(recs))
	for _, rec := range recs {
		var m Message
		if err := rec.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
