package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Response is a raw reply from a running server.
type Response struct {
	StatusCode int
	Body       []byte
}

func (r Response) Decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

type client struct {
	baseURL string
	http    *http.Client
}

// newClient targets the server at $API_URL and skips the test when it is unset.
func newClient(t *testing.T) *client {
	t.Helper()
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		t.Skip("API_URL not set; skipping black-box API tests")
	}
	return &client{baseURL: apiURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (c *client) do(t *testing.T, method, path string, body interface{}, token string) Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return Response{StatusCode: resp.StatusCode, Body: data}
}

// uniqueEmail keeps repeated runs against the same database from colliding.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s+%d@example.com", prefix, time.Now().UnixNano())
}
