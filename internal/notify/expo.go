package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// ExpoClient talks to the Expo push gateway. Delivery is best effort:
// failures are logged and dropped, never returned to the caller.
type ExpoClient struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

func NewExpoClient(url string, timeout time.Duration, log zerolog.Logger) *ExpoClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

type pushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Sound string `json:"sound"`
}

func (c *ExpoClient) Send(ctx context.Context, token, title, body string) {
	if token == "" {
		return
	}

	payload, err := json.Marshal(pushMessage{To: token, Title: title, Body: body, Sound: "default"})
	if err != nil {
		c.log.Error().Err(err).Msg("marshal push message")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		c.log.Error().Err(err).Msg("build push request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("push delivery failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.log.Warn().Int("status", resp.StatusCode).Msg("push gateway rejected message")
	}
}
