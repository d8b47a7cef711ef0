package webhook

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"procurement_backend/internal/requests/domain"
)

// ErrMalformedPayload is returned when a provider payload cannot be normalized.
var ErrMalformedPayload = errors.New("malformed webhook payload")

// Envelope is the provider-neutral inbound message shape.
type Envelope struct {
	Channel        string    `json:"channel" validate:"required,oneof=whatsapp email web api"`
	ExternalID     string    `json:"externalId" validate:"required,max=255"`
	SenderIdentity string    `json:"senderIdentity" validate:"required,max=255"`
	Content        string    `json:"content" validate:"required"`
	Timestamp      time.Time `json:"timestamp"`
	Attachments    []string  `json:"attachments"`
}

// metaWebhookPayload mirrors the Meta Cloud API nested webhook shape:
// entry[].changes[].value.messages[].
type metaWebhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ExtractWhatsApp flattens a Meta-style payload into envelopes, one per
// message. Non-text messages are skipped. An empty result with a non-empty
// payload is not an error: status-only notifications arrive on the same hook.
func ExtractWhatsApp(payload metaWebhookPayload) ([]Envelope, error) {
	if len(payload.Entry) == 0 {
		return nil, ErrMalformedPayload
	}

	var envelopes []Envelope
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.ID == "" || msg.From == "" {
					return nil, ErrMalformedPayload
				}
				if msg.Type != "" && msg.Type != "text" {
					continue
				}
				if strings.TrimSpace(msg.Text.Body) == "" {
					continue
				}
				envelopes = append(envelopes, Envelope{
					Channel:        domain.SourceWhatsApp,
					ExternalID:     msg.ID,
					SenderIdentity: msg.From,
					Content:        msg.Text.Body,
					Timestamp:      parseUnixSeconds(msg.Timestamp),
				})
			}
		}
	}
	return envelopes, nil
}

// emailWebhookPayload mirrors the inbound-email provider JSON shape.
type emailWebhookPayload struct {
	MessageID string `json:"messageId"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	HTML      string `json:"html"`
	Date      string `json:"date"`
}

// ExtractEmail normalizes an inbound email notification.
func ExtractEmail(payload emailWebhookPayload) (Envelope, error) {
	if payload.MessageID == "" || payload.From == "" {
		return Envelope{}, ErrMalformedPayload
	}

	content := payload.Text
	if strings.TrimSpace(content) == "" {
		content = payload.HTML
	}
	if payload.Subject != "" {
		content = payload.Subject + "\n" + content
	}
	if strings.TrimSpace(content) == "" {
		return Envelope{}, ErrMalformedPayload
	}

	timestamp := time.Time{}
	if payload.Date != "" {
		if parsed, err := time.Parse(time.RFC1123Z, payload.Date); err == nil {
			timestamp = parsed
		}
	}

	return Envelope{
		Channel:        domain.SourceEmail,
		ExternalID:     strings.Trim(payload.MessageID, "<>"),
		SenderIdentity: extractAddress(payload.From),
		Content:        content,
		Timestamp:      timestamp,
	}, nil
}

func parseUnixSeconds(raw string) time.Time {
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

// extractAddress pulls the bare address out of "Name <addr@host>" forms.
func extractAddress(from string) string {
	if start := strings.LastIndex(from, "<"); start >= 0 {
		if end := strings.LastIndex(from, ">"); end > start {
			return strings.TrimSpace(from[start+1 : end])
		}
	}
	return strings.TrimSpace(from)
}
