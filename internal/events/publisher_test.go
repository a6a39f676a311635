package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"supermock/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMatchEvent_Marshal(t *testing.T) {
	ev := events.MatchEvent{
		EventType:   events.SubjectMatchConfirmed,
		MatchID:     uuid.New(),
		CardID:      uuid.New(),
		OwnerID:     uuid.New(),
		RequesterID: uuid.New(),
		Status:      "confirmed",
		OccurredAt:  time.Now(),
	}

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, "match.confirmed", decoded["event_type"])
	require.Equal(t, ev.MatchID.String(), decoded["match_id"])
}

func TestNewPublisherWithoutURLIsNoop(t *testing.T) {
	p, err := events.NewPublisher("")
	require.NoError(t, err)
	require.IsType(t, events.NoopPublisher{}, p)

	p.PublishPoints(events.PointsEvent{UserID: uuid.New(), Amount: 5})
	p.Close()
}

func TestRecorderKeepsOrder(t *testing.T) {
	r := &events.Recorder{}
	r.PublishMatch(events.SubjectMatchRequested, events.MatchEvent{})
	r.PublishPurchase(events.SubjectPurchaseApproved, events.PurchaseEvent{})
	r.PublishPoints(events.PointsEvent{})

	require.Equal(t, []string{"match.requested", "purchase.approved", "points.adjusted"}, r.Subjects())
}
