package rokoko

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// requestTimeout bounds one command round-trip. Studio answers locally in
// milliseconds, so anything slower counts as unreachable.
const requestTimeout = 5 * time.Second

// Client talks to the command API of a running Rokoko Studio instance.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient returns a client for the Studio command API at host:port.
// The API key is part of the URL, not a header.
func NewClient(host string, port int, apiKey string) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d/v1/%s", host, port, apiKey),
		httpc:   &http.Client{Timeout: requestTimeout},
	}
}

// commandReply is the body Studio sends back for every command.
type commandReply struct {
	ResponseCode int    `json:"response_code"`
	Description  string `json:"description"`
}

// Call posts the action's fixed payload and translates Studio's reply.
// There are no retries; a failed call surfaces as UNREACHABLE and the next
// button press simply tries again.
func (c *Client) Call(ctx context.Context, action Action) Outcome {
	body, err := json.Marshal(action.Payload())
	if err != nil {
		return Unreachable(err.Error())
	}
	url := c.baseURL + "/" + action.Path()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Unreachable(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Unreachable(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Unreachable("unexpected status " + resp.Status)
	}
	var reply commandReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return Unreachable(fmt.Sprintf("bad reply: %v", err))
	}
	if reply.ResponseCode == 0 {
		return Success(reply.Description)
	}
	return Rejected(reply.ResponseCode, reply.Description)
}
