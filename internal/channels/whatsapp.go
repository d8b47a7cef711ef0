package channels

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"procurement_backend/internal/requests/domain"
	"procurement_backend/platform/config"
	"procurement_backend/platform/logger"
	"procurement_backend/platform/phone"
)

// WhatsAppChannel delivers messages through a self-hosted WhatsApp HTTP bridge.
type WhatsAppChannel struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type bridgeRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type bridgeResponse struct {
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

// NewWhatsAppChannel creates the channel. Returns nil when no bridge URL is
// configured; a nil channel is skipped by the dispatcher.
func NewWhatsAppChannel(cfg config.WhatsAppConfig, log *logger.Logger) *WhatsAppChannel {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}
	return &WhatsAppChannel{
		baseURL: strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:  cfg.GetWhatsAppKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Name returns the channel identifier.
func (c *WhatsAppChannel) Name() string { return domain.SourceWhatsApp }

// Send delivers a message through the bridge. The bridge expects digits-only
// international numbers.
func (c *WhatsAppChannel) Send(ctx context.Context, to, content string) (SendResult, error) {
	normalized := strings.TrimPrefix(phone.NormalizeE164(to), "+")

	body, err := json.Marshal(bridgeRequest{Phone: normalized, Message: content})
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return SendResult{}, fmt.Errorf("whatsapp bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed bridgeResponse
	_ = json.Unmarshal(data, &parsed)

	c.log.ChannelSend(domain.SourceWhatsApp, normalized, true, nil)
	return SendResult{Success: true, ProviderMessageID: parsed.Results.MessageID}, nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
