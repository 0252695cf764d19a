package webchat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Responder produces the assistant's reply text for a user message. The
// reply is plain markdown; the server renders it to HTML before delivery.
type Responder interface {
	Reply(ctx context.Context, sessionID, message string) (string, error)
}

// ResponderFunc adapts a plain function to the Responder interface.
type ResponderFunc func(ctx context.Context, sessionID, message string) (string, error)

func (f ResponderFunc) Reply(ctx context.Context, sessionID, message string) (string, error) {
	return f(ctx, sessionID, message)
}

// replyFields are probed in order when the webhook response does not use a
// fixed key for the reply. Best effort: the first non-empty string wins.
var replyFields = []string{"response", "message", "output", "text", "answer", "reply"}

// WebhookResponder forwards chat messages to an AI workflow webhook
// (n8n-style) and extracts the reply from whatever JSON comes back.
type WebhookResponder struct {
	URL     string
	Timeout time.Duration // per-request deadline, default 30s

	// Client overrides the HTTP client, mainly for tests.
	Client *http.Client
}

// NewWebhookResponder creates a responder posting to the given webhook URL.
func NewWebhookResponder(url string) *WebhookResponder {
	return &WebhookResponder{URL: url, Timeout: 30 * time.Second}
}

// Reply posts {sessionId, action, chatInput} to the webhook and returns the
// extracted reply text.
func (w *WebhookResponder) Reply(ctx context.Context, sessionID, message string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"sessionId": sessionID,
		"action":    "sendMessage",
		"chatInput": message,
	})
	if err != nil {
		return "", fmt.Errorf("webchat: failed to encode webhook payload: %w", err)
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("webchat: failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webchat: webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("webchat: webhook returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("webchat: failed to read webhook response: %w", err)
	}

	reply := extractReply(body)
	if reply == "" {
		return "", fmt.Errorf("webchat: webhook response carried no reply text")
	}
	return reply, nil
}

// extractReply pulls the assistant's reply out of a webhook response body.
// Workflow engines disagree on the field name, so a fixed list of known keys
// is probed before falling back to the first string value in the object.
func extractReply(body []byte) string {
	if !gjson.ValidBytes(body) {
		// Plain-text webhook.
		return strings.TrimSpace(string(body))
	}

	root := gjson.ParseBytes(body)

	// n8n wraps workflow output in a single-element array.
	if root.IsArray() {
		arr := root.Array()
		if len(arr) == 0 {
			return ""
		}
		root = arr[0]
	}

	if root.Type == gjson.String {
		return root.Str
	}

	for _, field := range replyFields {
		if v := root.Get(field); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}

	var reply string
	root.ForEach(func(_, value gjson.Result) bool {
		if value.Type == gjson.String && value.Str != "" {
			reply = value.Str
			return false
		}
		return true
	})
	return reply
}
