package websocket

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

// TestOriginAllowed tests WebSocket origin validation
func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"NoOriginHeader", []string{"http://example.com"}, "", true},
		{"Wildcard", []string{"*"}, "http://anywhere.com", true},
		{"ExactMatch", []string{"http://example.com"}, "http://example.com", true},
		{"Mismatch", []string{"http://example.com"}, "http://evil.com", false},
		{"EmptyList", nil, "http://anywhere.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHub(&HubConfig{AllowedOrigins: tt.allowed}, zap.NewNop())
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := h.originAllowed(r); got != tt.want {
				t.Errorf("originAllowed(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

// TestEventGating tests per-type broadcast configuration
func TestEventGating(t *testing.T) {
	h := NewHub(&HubConfig{
		BroadcastDetections: true,
		BroadcastRequests:   false,
		BroadcastSystem:     false,
	}, zap.NewNop())

	if !h.shouldBroadcastEvent(EventTypeDetection) {
		t.Error("Detection events should broadcast")
	}
	if h.shouldBroadcastEvent(EventTypeRequestLog) {
		t.Error("Request events should be gated off")
	}
	if h.shouldBroadcastEvent(EventTypeSystemStatus) {
		t.Error("System events should be gated off")
	}
	if !h.shouldBroadcastEvent(EventTypeConnection) {
		t.Error("Connection events are always broadcast")
	}
}

// TestSubscriptionFilter tests per-client event filtering
func TestSubscriptionFilter(t *testing.T) {
	h := NewHub(&HubConfig{}, zap.NewNop())
	event := Event{Type: EventTypeDetection, Timestamp: time.Now()}

	t.Run("NoSubscriptionReceivesEverything", func(t *testing.T) {
		client := &Client{}
		if !h.shouldSendToClient(client, event) {
			t.Error("Unsubscribed client should receive all events")
		}
	})

	t.Run("MatchingSubscription", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{Events: []EventType{EventTypeDetection}}}
		if !h.shouldSendToClient(client, event) {
			t.Error("Subscribed event type should be delivered")
		}
	})

	t.Run("NonMatchingSubscription", func(t *testing.T) {
		client := &Client{Subscription: &SubscriptionRequest{Events: []EventType{EventTypeSystemStatus}}}
		if h.shouldSendToClient(client, event) {
			t.Error("Unsubscribed event type should be filtered")
		}
	})
}

// TestBroadcastGatedEventDropped tests that gated events never enter the
// broadcast channel
func TestBroadcastGatedEventDropped(t *testing.T) {
	h := NewHub(&HubConfig{BroadcastRequests: false}, zap.NewNop())

	h.BroadcastEvent(Event{Type: EventTypeRequestLog, Timestamp: time.Now()})

	select {
	case ev := <-h.broadcast:
		t.Errorf("Gated event reached the broadcast channel: %+v", ev)
	default:
	}
}
