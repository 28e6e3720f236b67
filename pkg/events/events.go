package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/diagnosis/stayline-hotel/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type Subscriber interface {
	Subscribe(subject string, handler func(msg *Message)) error
	QueueSubscribe(subject, queue string, handler func(msg *Message)) error
	Close() error
}

type EventBus interface {
	Publisher
	Subscriber
}

type Message struct {
	Subject   string
	Data      []byte
	Timestamp time.Time
	ID        string
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Subscribe(subject string, handler func(msg *Message)) error {
	_, err := n.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) QueueSubscribe(subject, queue string, handler func(msg *Message)) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(&Message{
			Subject:   msg.Subject,
			Data:      msg.Data,
			Timestamp: time.Now(),
			ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		})
	})
	return err
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	ReservationCreated    = "reservation.created"
	ReservationCheckedIn  = "reservation.checked_in"
	ReservationCheckedOut = "reservation.checked_out"
	ReservationCancelled  = "reservation.cancelled"

	NotifySend = "notify.send"
)

// Event payloads
type ReservationCreatedEvent struct {
	ReservationID string    `json:"reservation_id"`
	RoomNumber    string    `json:"room_number"`
	GuestEmail    string    `json:"guest_email"`
	GuestName     string    `json:"guest_name"`
	CheckIn       string    `json:"check_in"`
	CheckOut      string    `json:"check_out"`
	NumGuests     int       `json:"num_guests"`
	CreatedAt     time.Time `json:"created_at"`
}

type ReservationCheckedInEvent struct {
	ReservationID string    `json:"reservation_id"`
	RoomNumber    string    `json:"room_number"`
	CheckedInAt   time.Time `json:"checked_in_at"`
}

type ReservationCheckedOutEvent struct {
	ReservationID string    `json:"reservation_id"`
	RoomNumber    string    `json:"room_number"`
	CheckedOutAt  time.Time `json:"checked_out_at"`
}

type ReservationCancelledEvent struct {
	ReservationID string    `json:"reservation_id"`
	RoomNumber    string    `json:"room_number"`
	GuestEmail    string    `json:"guest_email"`
	Reason        string    `json:"reason"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

type NotificationEvent struct {
	Type      string                 `json:"type"`
	Recipient string                 `json:"recipient"`
	Subject   string                 `json:"subject"`
	Template  string                 `json:"template"`
	Data      map[string]interface{} `json:"data"`
}
