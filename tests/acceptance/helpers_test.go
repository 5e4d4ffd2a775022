package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

// client talks to a running test server the way a real API consumer would
type client struct {
	t      *testing.T
	server *httptest.Server
}

func (c *client) do(method, path, token string, body interface{}) (*http.Response, map[string]interface{}) {
	c.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.server.URL+path, bodyReader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.send(req)
}

func (c *client) send(req *http.Request) (*http.Response, map[string]interface{}) {
	c.t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var responseData map[string]interface{}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&responseData))
	return resp, responseData
}

func data(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, true, response["success"], "response: %v", response)
	return response["data"].(map[string]interface{})
}

func id(m map[string]interface{}) uint {
	return uint(m["id"].(float64))
}
