package directory

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"tutor-chat/domain"
	"tutor-chat/errors"

	"github.com/go-resty/resty/v2"
)

// Client reads display information from the Directory Service.
type Client struct {
	baseURL    string
	httpClient *resty.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "tutor-chat/1.0").
		SetTimeout(timeout)
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

func (c *Client) GetUserDisplayInfo(ctx context.Context, userID domain.UserID) (domain.UserDisplayInfo, error) {
	var info domain.UserDisplayInfo
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(&info).
		Get("/users/" + url.PathEscape(string(userID)))
	if err != nil {
		if ctx.Err() != nil {
			return domain.UserDisplayInfo{}, ctx.Err()
		}
		return domain.UserDisplayInfo{}, fmt.Errorf("%w: %v", errors.ErrDirectoryUnavailable, err)
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return domain.UserDisplayInfo{}, fmt.Errorf("%w: %s", errors.ErrUnknownUser, userID)
	case resp.IsError():
		return domain.UserDisplayInfo{}, fmt.Errorf("%w: status %d", errors.ErrDirectoryUnavailable, resp.StatusCode())
	}
	if info.UserID == "" {
		info.UserID = userID
	}
	return info, nil
}
