package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/internal/config"
	"github.com/savegress/vitalink/pkg/models"
)

// WebhookNotifier posts alerts to a configured webhook
type WebhookNotifier struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		headers: cfg.Headers,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Name returns the notifier name
func (n *WebhookNotifier) Name() string {
	return "webhook"
}

// Notify sends an alert to the webhook
func (n *WebhookNotifier) Notify(alert *models.VitalAlert) error {
	if n.url == "" {
		return nil
	}

	payload := WebhookPayload{
		EventType: "vital_alert",
		Alert:     alert,
		Timestamp: time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest("POST", n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range n.headers {
		req.Header.Set(key, value)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// WebhookPayload represents the webhook payload
type WebhookPayload struct {
	EventType string             `json:"event_type"`
	Alert     *models.VitalAlert `json:"alert"`
	Timestamp time.Time          `json:"timestamp"`
}

// LogNotifier writes alerts to the structured log
type LogNotifier struct{}

// NewLogNotifier creates a new log notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// Name returns the notifier name
func (n *LogNotifier) Name() string {
	return "log"
}

// Notify logs the alert
func (n *LogNotifier) Notify(alert *models.VitalAlert) error {
	logrus.WithFields(logrus.Fields{
		"kind":     alert.Kind,
		"severity": alert.Severity,
		"value":    alert.TriggerValue,
		"device":   alert.DeviceID,
	}).Warn(alert.Title)
	return nil
}
