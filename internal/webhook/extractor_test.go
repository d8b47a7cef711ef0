package webhook

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func metaPayload(t *testing.T, raw string) metaWebhookPayload {
	t.Helper()
	var payload metaWebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return payload
}

func TestExtractWhatsAppFlattensMessages(t *testing.T) {
	payload := metaPayload(t, `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [
						{"id": "wamid.1", "from": "5215512345678", "timestamp": "1700000000", "type": "text", "text": {"body": "necesito tornillos"}},
						{"id": "wamid.2", "from": "5215512345678", "timestamp": "1700000060", "type": "text", "text": {"body": "100 piezas"}}
					]
				}
			}]
		}]
	}`)

	envelopes, err := ExtractWhatsApp(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(envelopes) != 2 {
		t.Fatalf("envelopes = %d, want 2", len(envelopes))
	}
	first := envelopes[0]
	if first.Channel != "whatsapp" {
		t.Errorf("channel = %q", first.Channel)
	}
	if first.ExternalID != "wamid.1" || first.SenderIdentity != "5215512345678" {
		t.Errorf("envelope = %+v", first)
	}
	if first.Content != "necesito tornillos" {
		t.Errorf("content = %q", first.Content)
	}
	if want := time.Unix(1700000000, 0).UTC(); !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, want)
	}
}

func TestExtractWhatsAppSkipsNonTextMessages(t *testing.T) {
	payload := metaPayload(t, `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [
						{"id": "wamid.1", "from": "5215512345678", "type": "image"},
						{"id": "wamid.2", "from": "5215512345678", "type": "text", "text": {"body": "hola"}}
					]
				}
			}]
		}]
	}`)

	envelopes, err := ExtractWhatsApp(payload)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(envelopes) != 1 || envelopes[0].ExternalID != "wamid.2" {
		t.Errorf("envelopes = %+v, want only the text message", envelopes)
	}
}

func TestExtractWhatsAppStatusOnlyNotificationIsEmpty(t *testing.T) {
	payload := metaPayload(t, `{"entry": [{"changes": [{"value": {}}]}]}`)

	envelopes, err := ExtractWhatsApp(payload)
	if err != nil {
		t.Fatalf("status-only notification must not error: %v", err)
	}
	if len(envelopes) != 0 {
		t.Errorf("envelopes = %d, want none", len(envelopes))
	}
}

func TestExtractWhatsAppMalformed(t *testing.T) {
	if _, err := ExtractWhatsApp(metaWebhookPayload{}); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("empty entry: err = %v, want malformed", err)
	}

	missingID := metaPayload(t, `{
		"entry": [{"changes": [{"value": {"messages": [{"from": "5215512345678", "text": {"body": "hola"}}]}}]}]
	}`)
	if _, err := ExtractWhatsApp(missingID); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("missing id: err = %v, want malformed", err)
	}
}

func TestExtractEmail(t *testing.T) {
	envelope, err := ExtractEmail(emailWebhookPayload{
		MessageID: "<abc123@mail.example.com>",
		From:      "Compras ACME <compras@acme.mx>",
		Subject:   "Cotizacion de tornillos",
		Text:      "necesito 100 piezas",
		Date:      "Mon, 02 Jan 2006 15:04:05 -0700",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if envelope.Channel != "email" {
		t.Errorf("channel = %q", envelope.Channel)
	}
	if envelope.ExternalID != "abc123@mail.example.com" {
		t.Errorf("external id = %q, angle brackets must be trimmed", envelope.ExternalID)
	}
	if envelope.SenderIdentity != "compras@acme.mx" {
		t.Errorf("sender = %q, want bare address", envelope.SenderIdentity)
	}
	if envelope.Content != "Cotizacion de tornillos\nnecesito 100 piezas" {
		t.Errorf("content = %q, subject must prefix the body", envelope.Content)
	}
	if envelope.Timestamp.IsZero() {
		t.Error("valid date must be parsed")
	}
}

func TestExtractEmailFallsBackToHTML(t *testing.T) {
	envelope, err := ExtractEmail(emailWebhookPayload{
		MessageID: "id1",
		From:      "cliente@example.com",
		HTML:      "<p>necesito papeleria</p>",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if envelope.Content != "<p>necesito papeleria</p>" {
		t.Errorf("content = %q, want html body", envelope.Content)
	}
	if envelope.SenderIdentity != "cliente@example.com" {
		t.Errorf("sender = %q", envelope.SenderIdentity)
	}
}

func TestExtractEmailMalformed(t *testing.T) {
	if _, err := ExtractEmail(emailWebhookPayload{From: "a@b.com", Text: "hola"}); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("missing message id: err = %v, want malformed", err)
	}
	if _, err := ExtractEmail(emailWebhookPayload{MessageID: "id", From: "a@b.com"}); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("empty content: err = %v, want malformed", err)
	}
}
