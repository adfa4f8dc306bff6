package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/nilm-chat/pkg/llm"
	"github.com/kart-io/nilm-chat/pkg/utils/errors"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "sk-ant-test", r.Header.Get("x-api-key"))
		assert.Equal(t, APIVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "claude-test", req.Model)
		assert.Equal(t, 256, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 1e-9)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "USER: what is on?\nASSISTANT:", req.Messages[0].Content)

		_, _ = w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","content":[` +
			`{"type":"text","text":"The dryer "},{"type":"text","text":"draws 2kW."}],"stop_reason":"end_turn"}`))
	})
	mux.HandleFunc("/v1/models/claude-test", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":"claude-test","type":"model"}`))
	})
	mux.HandleFunc("/v1/models/missing", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"not_found_error"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)

	_, err = NewProvider(map[string]any{"api_key": "sk-ant-test", "device": "cuda"})
	assert.Error(t, err)
}

func TestGenerate(t *testing.T) {
	srv := newServer(t)

	p, err := NewProvider(map[string]any{"base_url": srv.URL + "/", "api_key": "sk-ant-test", "model": "claude-test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, p.Name())

	out, err := p.Generate(context.Background(), "USER: what is on?\nASSISTANT:", llm.DefaultGenerateParams(256, 0.7))
	require.NoError(t, err)
	assert.Equal(t, "The dryer draws 2kW.", out)
}

func TestGenerateClampsTemperature(t *testing.T) {
	var got float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = req.Temperature
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := p.Generate(context.Background(), "x", llm.DefaultGenerateParams(8, 1.6))
	require.NoError(t, err)
	assert.Equal(t, 1.0, got)
}

func TestGenerateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[{"type":"tool_use","id":"t1"}]}`))
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := p.Generate(context.Background(), "x", llm.DefaultGenerateParams(8, 0.7))
	assert.ErrorIs(t, err, llm.ErrEmptyOutput)
}

func TestGenerateTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewProviderWithConfig(&Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	_, err := p.Generate(context.Background(), "x", llm.DefaultGenerateParams(8, 0.7))
	assert.ErrorIs(t, err, errors.ErrProviderRequest)
}

func TestPing(t *testing.T) {
	srv := newServer(t)

	require.NoError(t, NewProviderWithConfig(&Config{BaseURL: srv.URL, APIKey: "sk-ant-test", Model: "claude-test"}).Ping(context.Background()))
	assert.Error(t, NewProviderWithConfig(&Config{BaseURL: srv.URL, APIKey: "sk-ant-test", Model: "missing"}).Ping(context.Background()))
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, llm.ListProviders(), ProviderName)
}
