package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Message is one notification to deliver. Channel selects the delivery
// mechanism (email, sms, push); the collaborator owns the details.
type Message struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// Notifier delivers messages fire-and-forget. Failures are logged by
// the caller, never surfaced as request failures.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// HTTPNotifier posts messages to an external notification service.
type HTTPNotifier struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewHTTPNotifier creates a notifier client with the given timeout.
func NewHTTPNotifier(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPNotifier {
	return &HTTPNotifier{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
		Logger:     logger,
	}
}

// Send posts the message and discards the response body.
func (n *HTTPNotifier) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.BaseURL+"/notify", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification service: %d", resp.StatusCode)
	}
	n.Logger.Info("Notification sent",
		zap.String("channel", msg.Channel),
		zap.String("recipient", msg.Recipient),
		zap.String("subject", msg.Subject))
	return nil
}
