package player

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/souzalb/tv-senai/internal/store"
)

// Client fetches a display's resolved assignment from the signage service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) FetchView(ctx context.Context, displayID string) (store.PlayerView, bool, error) {
	url := fmt.Sprintf("%s/api/player/displays/%s", c.baseURL, displayID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return store.PlayerView{}, false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return store.PlayerView{}, false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return store.PlayerView{}, false, nil
	default:
		return store.PlayerView{}, false, fmt.Errorf("fetch view: unexpected status %d", resp.StatusCode)
	}

	var view store.PlayerView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		return store.PlayerView{}, false, err
	}
	return view, true, nil
}
