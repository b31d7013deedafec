package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/ignite/deliverability/internal/service/events"
)

// EventSink consumes normalized provider events.
type EventSink interface {
	Process(ctx context.Context, in events.InboundEvent) error
}

// Archiver stores raw webhook payloads. May be nil when archival is disabled.
type Archiver interface {
	ArchiveAsync(payload []byte)
}

// snsEnvelope is the AWS SNS notification wrapper.
type snsEnvelope struct {
	Type         string `json:"Type"`
	SubscribeURL string `json:"SubscribeURL"`
	Message      string `json:"Message"`
	MessageId    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
}

// sesNotification is the SES delivery notification carried inside an SNS
// message (or posted bare when SNS is bypassed).
type sesNotification struct {
	EventType        string `json:"eventType"`
	NotificationType string `json:"notificationType"`
	Mail             struct {
		MessageID string    `json:"messageId"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"mail"`
	Bounce *struct {
		BounceType string    `json:"bounceType"`
		Timestamp  time.Time `json:"timestamp"`
	} `json:"bounce,omitempty"`
	Complaint *struct {
		Timestamp time.Time `json:"timestamp"`
	} `json:"complaint,omitempty"`
	Delivery *struct {
		Timestamp time.Time `json:"timestamp"`
	} `json:"delivery,omitempty"`
	Open *struct {
		Timestamp time.Time `json:"timestamp"`
	} `json:"open,omitempty"`
	Click *struct {
		Link      string    `json:"link"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"click,omitempty"`
}

// HandleSESWebhook processes SES delivery events arriving over SNS. The
// endpoint always returns 200 for parseable requests so the provider does not
// retry events we chose to drop.
func (h *Handlers) HandleSESWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if h.archiver != nil {
		h.archiver.ArchiveAsync(body)
	}

	var envelope snsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	switch envelope.Type {
	case "SubscriptionConfirmation":
		h.confirmSubscription(envelope)
		w.WriteHeader(http.StatusOK)
		return
	case "Notification":
		body = []byte(envelope.Message)
	}

	var notification sesNotification
	if err := json.Unmarshal(body, &notification); err != nil {
		log.Printf("[Webhooks] Unparseable SES notification: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	in := normalizeSESEvent(notification)
	if err := h.events.Process(r.Context(), in); err != nil {
		// The event row may not have landed; let the provider retry.
		log.Printf("[Webhooks] Processing %s event failed: %v", in.Type, err)
		http.Error(w, "event processing failed", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) confirmSubscription(envelope snsEnvelope) {
	log.Printf("[Webhooks] SNS subscription confirmation for topic %s", envelope.TopicArn)
	resp, err := http.Get(envelope.SubscribeURL)
	if err != nil {
		log.Printf("[Webhooks] Failed to confirm SNS subscription: %v", err)
		return
	}
	resp.Body.Close()
	log.Printf("[Webhooks] SNS subscription confirmed")
}

// normalizeSESEvent maps a provider notification onto the internal event
// shape. eventType (configuration-set events) wins over notificationType
// (legacy notifications).
func normalizeSESEvent(n sesNotification) events.InboundEvent {
	in := events.InboundEvent{
		Type:          n.EventType,
		CorrelationID: n.Mail.MessageID,
		OccurredAt:    n.Mail.Timestamp,
	}
	if in.Type == "" {
		in.Type = n.NotificationType
	}

	switch {
	case n.Bounce != nil:
		in.BounceType = n.Bounce.BounceType
		if !n.Bounce.Timestamp.IsZero() {
			in.OccurredAt = n.Bounce.Timestamp
		}
	case n.Complaint != nil && !n.Complaint.Timestamp.IsZero():
		in.OccurredAt = n.Complaint.Timestamp
	case n.Delivery != nil && !n.Delivery.Timestamp.IsZero():
		in.OccurredAt = n.Delivery.Timestamp
	case n.Open != nil && !n.Open.Timestamp.IsZero():
		in.OccurredAt = n.Open.Timestamp
	case n.Click != nil:
		in.LinkURL = n.Click.Link
		if !n.Click.Timestamp.IsZero() {
			in.OccurredAt = n.Click.Timestamp
		}
	}
	return in
}
