package webchat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "response field", body: `{"response":"r"}`, want: "r"},
		{name: "message field", body: `{"message":"m"}`, want: "m"},
		{name: "output field", body: `{"output":"o"}`, want: "o"},
		{name: "text field", body: `{"text":"t"}`, want: "t"},
		{name: "probe order", body: `{"text":"t","response":"r"}`, want: "r"},
		{name: "n8n array wrapper", body: `[{"output":"wrapped"}]`, want: "wrapped"},
		{name: "bare json string", body: `"just text"`, want: "just text"},
		{name: "first string fallback", body: `{"count":3,"result":"fallback"}`, want: "fallback"},
		{name: "plain text body", body: "hello there\n", want: "hello there"},
		{name: "empty object", body: `{}`, want: ""},
		{name: "empty array", body: `[]`, want: ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, extractReply([]byte(tc.body)))
		})
	}
}

func TestWebhookResponderReply(t *testing.T) {
	var got map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output":"**hi** there"}`))
	}))
	defer ts.Close()

	responder := NewWebhookResponder(ts.URL)
	reply, err := responder.Reply(context.Background(), "session-1", "hello")
	require.NoError(t, err)

	assert.Equal(t, "**hi** there", reply)
	assert.Equal(t, "session-1", got["sessionId"])
	assert.Equal(t, "sendMessage", got["action"])
	assert.Equal(t, "hello", got["chatInput"])
}

func TestWebhookResponderStatusError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewWebhookResponder(ts.URL).Reply(context.Background(), "s", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookResponderEmptyReply(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	_, err := NewWebhookResponder(ts.URL).Reply(context.Background(), "s", "m")
	require.Error(t, err)
}
