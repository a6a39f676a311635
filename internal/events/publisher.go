package events

import (
	"encoding/json"
	"fmt"
	"time"

	"supermock/internal/logger"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectMatchRequested   = "match.requested"
	SubjectMatchConfirmed   = "match.confirmed"
	SubjectMatchRejected    = "match.rejected"
	SubjectMatchCancelled   = "match.cancelled"
	SubjectMatchCompleted   = "match.completed"
	SubjectPurchaseApproved = "purchase.approved"
	SubjectPurchaseRejected = "purchase.rejected"
	SubjectPointsAdjusted   = "points.adjusted"
)

// Publisher 领域事件发布。发布发生在事务提交之后，失败只记录日志
type Publisher interface {
	PublishMatch(subject string, ev MatchEvent)
	PublishPurchase(subject string, ev PurchaseEvent)
	PublishPoints(ev PointsEvent)
	Close()
}

type MatchEvent struct {
	EventType   string    `json:"event_type"`
	MatchID     uuid.UUID `json:"match_id"`
	CardID      uuid.UUID `json:"card_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type PurchaseEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  uuid.UUID `json:"request_id"`
	UserID     uuid.UUID `json:"user_id"`
	AdminID    uuid.UUID `json:"admin_id"`
	Amount     int       `json:"amount"`
	OccurredAt time.Time `json:"occurred_at"`
}

type PointsEvent struct {
	EventType   string    `json:"event_type"`
	UserID      uuid.UUID `json:"user_id"`
	Amount      int       `json:"amount"`
	Balance     int       `json:"balance"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type NatsPublisher struct {
	conn *nats.Conn
}

// NewPublisher url 为空时返回不做任何事的发布器
func NewPublisher(url string) (Publisher, error) {
	if url == "" {
		return NoopPublisher{}, nil
	}
	nc, err := nats.Connect(url,
		nats.Name("supermock"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsPublisher{conn: nc}, nil
}

func (p *NatsPublisher) PublishMatch(subject string, ev MatchEvent) {
	ev.EventType = subject
	p.publish(subject, ev)
}

func (p *NatsPublisher) PublishPurchase(subject string, ev PurchaseEvent) {
	ev.EventType = subject
	p.publish(subject, ev)
}

func (p *NatsPublisher) PublishPoints(ev PointsEvent) {
	ev.EventType = SubjectPointsAdjusted
	p.publish(SubjectPointsAdjusted, ev)
}

func (p *NatsPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

func (p *NatsPublisher) publish(subject string, ev any) {
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Error("Error marshalling event", "subject", subject, "error", err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		logger.Error("Error publishing to NATS", "subject", subject, "error", err)
		return
	}
	logger.Debug("Published event", "subject", subject)
}

// NoopPublisher 未配置 NATS 时使用
type NoopPublisher struct{}

func (NoopPublisher) PublishMatch(string, MatchEvent)       {}
func (NoopPublisher) PublishPurchase(string, PurchaseEvent) {}
func (NoopPublisher) PublishPoints(PointsEvent)             {}
func (NoopPublisher) Close()                                {}
