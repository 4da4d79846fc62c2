package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/llm"
)

func mappingRequest() llm.MappingRequest {
	return llm.MappingRequest{
		FilenameHint: "vendor.xlsx",
		Columns: []llm.SampleColumn{
			{Index: 0, Name: "buyer_po", Header: "Buyer PO", Examples: []string{"PO-1"}},
			{Index: 1, Name: "pcs", Header: "Pcs", Examples: []string{"100"}},
			{Index: 2, Name: "cut_start", Header: "Cut Start", Examples: []string{"01/02/2025"}},
		},
		Stages:    []string{"cutting", "shipping"},
		TotalRows: 1,
	}
}

func chatServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newTestClient(url string, lenient bool) *Client {
	return NewClient(Config{
		APIKey:          "sk-test",
		BaseURL:         url,
		Model:           "gpt-4o-mini",
		Timeout:         2 * time.Second,
		LenientOptional: lenient,
	}, nil)
}

func TestMapColumnsOK(t *testing.T) {
	srv := chatServer(t, `{"order_number":"buyer_po","quantity":"pcs","timeline":{"cutting":"cut_start","shipping":null}}`, http.StatusOK)
	defer srv.Close()

	resp, raw, err := newTestClient(srv.URL, false).MapColumns(context.Background(), mappingRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	require.NotNil(t, resp.OrderNumber)
	assert.Equal(t, "buyer_po", *resp.OrderNumber)
	assert.Equal(t, "pcs", *resp.Quantity)
	assert.Equal(t, "cut_start", *resp.Timeline["cutting"])
	assert.Nil(t, resp.Timeline["shipping"])
}

func TestMapColumnsLenientRepair(t *testing.T) {
	srv := chatServer(t, "```json\n{\"po\":\"Buyer PO\",\"qty\":\"Pcs\",\"cut\":\"Cut Start\"}\n```", http.StatusOK)
	defer srv.Close()

	resp, _, err := newTestClient(srv.URL, true).MapColumns(context.Background(), mappingRequest())
	require.NoError(t, err)
	assert.Equal(t, "buyer_po", *resp.OrderNumber)
	assert.Equal(t, "cut_start", *resp.Timeline["cutting"])

	_, _, err = newTestClient(srv.URL, false).MapColumns(context.Background(), mappingRequest())
	assert.ErrorIs(t, err, common.ErrAIMalformedResponse)
}

func TestMapColumnsMalformed(t *testing.T) {
	for _, content := range []string{"sorry, I cannot help", `{"order_number":"nope","quantity":"pcs"}`} {
		srv := chatServer(t, content, http.StatusOK)
		_, _, err := newTestClient(srv.URL, true).MapColumns(context.Background(), mappingRequest())
		assert.ErrorIs(t, err, common.ErrAIMalformedResponse, content)
		srv.Close()
	}
}

func TestMapColumnsUnavailable(t *testing.T) {
	srv := chatServer(t, `{}`, http.StatusTooManyRequests)
	defer srv.Close()

	_, _, err := newTestClient(srv.URL, true).MapColumns(context.Background(), mappingRequest())
	assert.ErrorIs(t, err, common.ErrAIUnavailable)
	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Status)

	t.Setenv("OPENAI_API_KEY", "")
	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, _, err = c.MapColumns(context.Background(), mappingRequest())
	assert.ErrorIs(t, err, common.ErrAIUnavailable)
}

func TestMapColumnsRetriesThrottled(t *testing.T) {
	var calls atomic.Int32
	ok := chatServer(t, `{"order_number":"buyer_po","quantity":"pcs","timeline":{"cutting":"cut_start","shipping":null}}`, http.StatusOK)
	defer ok.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		ok.Config.Handler.ServeHTTP(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, true)
	c.cfg.MaxRetries = 1
	resp, _, err := c.MapColumns(context.Background(), mappingRequest())
	require.NoError(t, err)
	assert.Equal(t, "buyer_po", *resp.OrderNumber)
	assert.Equal(t, int32(2), calls.Load())
}

func TestMapColumnsRetryDoesNotOutliveDeadline(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, true)
	c.cfg.MaxRetries = 3
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	_, _, err := c.MapColumns(ctx, mappingRequest())
	assert.ErrorIs(t, err, common.ErrAIUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(common.LLMConfig{APIKey: "k", Model: "m", MaxRetries: 2, Timeout: time.Second})
	assert.Equal(t, Config{APIKey: "k", Model: "m", MaxRetries: 2, Timeout: time.Second, LenientOptional: true}, cfg)
}

func TestMapColumnsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, _, err := newTestClient(srv.URL, true).MapColumns(ctx, mappingRequest())
	assert.ErrorIs(t, err, common.ErrAITimeout)
}
