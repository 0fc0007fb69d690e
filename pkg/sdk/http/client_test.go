package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoPayload struct {
	Errno  int    `json:"errno"`
	Errmsg string `json:"errmsg"`
}

func TestDoRequest_GET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/openapi/positions", r.URL.Path)
		assert.Equal(t, "k-1", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echoPayload{Errno: 0})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	out := &echoPayload{}
	resp, err := client.DoRequest(context.Background(), "GET", "/openapi/positions", &RequestOptions{
		Headers: map[string]string{"X-Api-Key": "k-1"},
	}, out)
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.Equal(t, 0, out.Errno)
}

func TestDoRequest_POSTBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok-1", body["token_id"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echoPayload{Errno: 0})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	out := &echoPayload{}
	_, err := client.DoRequest(context.Background(), "POST", "/openapi/order", &RequestOptions{
		Data: map[string]any{"token_id": "tok-1"},
	}, out)
	require.NoError(t, err)
}

func TestDoRequest_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.URL.Query().Get("market_id"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(echoPayload{})
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.DoRequest(context.Background(), "GET", "/openapi/markets", &RequestOptions{
		Params: map[string]any{"market_id": 7},
	}, nil)
	require.NoError(t, err)
}

func TestDoRequest_UnsupportedMethod(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")
	_, err := client.DoRequest(context.Background(), "PATCH", "/x", nil, nil)
	assert.Error(t, err)
}

func TestParseHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"errno":403,"errmsg":"forbidden"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.DoRequest(context.Background(), "GET", "/x", nil, nil)
	require.NoError(t, err)

	perr := ParseHTTPError(resp, err)
	require.Error(t, perr)
	assert.Contains(t, perr.Error(), "403")
}

func TestParseHTTPError_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	resp, err := client.DoRequest(context.Background(), "GET", "/x", nil, nil)
	require.NoError(t, err)
	assert.NoError(t, ParseHTTPError(resp, err))
}
