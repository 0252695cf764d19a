package webchat

import (
	"context"
	"fmt"
	"strings"

	ollama "github.com/eslider/go-ollama"
)

// OllamaResponder generates replies with an Ollama/Open WebUI instance
// instead of a workflow webhook.
type OllamaResponder struct {
	Model  string
	client *ollama.Client
}

// NewOllamaResponder creates a responder backed by the given Ollama instance
// and model.
func NewOllamaResponder(dsn *ollama.DSN, model string) *OllamaResponder {
	return &OllamaResponder{
		Model:  model,
		client: ollama.NewOpenWebUiClient(dsn),
	}
}

// Reply forwards the message as a prompt and joins the streamed chunks into
// a single reply.
func (o *OllamaResponder) Reply(ctx context.Context, sessionID, message string) (string, error) {
	var chunks []string
	err := o.client.Query(ollama.Request{
		Model:  o.Model,
		Prompt: message,
		Options: &ollama.RequestOptions{
			Temperature: ollama.Float(0.7),
		},
		OnJson: func(res ollama.Response) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if res.Response != nil {
				chunks = append(chunks, *res.Response)
			}
			return nil
		},
	})
	if err != nil {
		return "", fmt.Errorf("webchat: ollama query failed: %w", err)
	}
	return strings.Join(chunks, ""), nil
}
