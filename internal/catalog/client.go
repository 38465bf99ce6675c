package catalog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	ErrRemoteNotFound    = errors.New("remote item not found")
	ErrRemoteBadStatus   = errors.New("remote bad status")
	ErrRemoteUnavailable = errors.New("remote unavailable")
)

type Client struct {
	BaseURL string
	Token   string
	Client  *http.Client

	// Stream is used by Watch and has no overall timeout.
	Stream *http.Client
}

func NewClient(baseURL, token string) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 3 * time.Second},
		Stream:  &http.Client{},
	}
}

func (c *Client) Snapshot(ctx context.Context) (State, error) {
	var st State
	err := c.do(ctx, http.MethodGet, "/catalog", &st)
	return st, err
}

func (c *Client) IncrementPrice(ctx context.Context, id string) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodPost, "/catalog/primary/"+url.PathEscape(id)+"/increment", &it)
	return it, err
}

func (c *Client) DecrementPrice(ctx context.Context, id string) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodPost, "/catalog/primary/"+url.PathEscape(id)+"/decrement", &it)
	return it, err
}

func (c *Client) IncrementAt(ctx context.Context, index int) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/catalog/primary/at/%d/increment", index), &it)
	return it, err
}

func (c *Client) DecrementAt(ctx context.Context, index int) (Item, error) {
	var it Item
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/catalog/primary/at/%d/decrement", index), &it)
	return it, err
}

// Watch calls fn for every snapshot event until ctx is done, the stream
// ends, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(State) error) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/catalog/events")
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.Stream.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrRemoteBadStatus, resp.StatusCode)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var event string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			event = ""
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:") && event == "snapshot":
			var st State
			if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), &st); err != nil {
				return err
			}
			if err := fn(st); err != nil {
				return err
			}
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	return sc.Err()
}

func (c *Client) newRequest(ctx context.Context, method, path string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := c.newRequest(ctx, method, path)
	if err != nil {
		return err
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrRemoteNotFound
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: status=%d", ErrRemoteBadStatus, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
