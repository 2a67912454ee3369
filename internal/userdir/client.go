// Package userdir предоставляет клиент для внешнего справочника пользователей.
package userdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Client инкапсулирует HTTP-взаимодействие со справочником пользователей.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// UserInfo описывает ответ справочника по одному пользователю.
type UserInfo struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// NewClient создаёт HTTP-клиент для обращения к справочнику пользователей по указанному адресу.
// Временные сетевые ошибки и ответы 5xx повторяются прозрачно для вызывающей стороны.
func NewClient(baseURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = 5 * time.Second
	rc.Logger = nil

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: rc.StandardClient(),
	}
}

// GetUser запрашивает данные пользователя по идентификатору.
// Если пользователь не найден, возвращается (nil, nil).
func (c *Client) GetUser(ctx context.Context, userID int64) (*UserInfo, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("userdir client not configured")
	}

	base := c.baseURL
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	url := fmt.Sprintf("%s/api/users/%d", base, userID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result UserInfo
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// UserExists проверяет, существует ли пользователь с указанным идентификатором.
func (c *Client) UserExists(ctx context.Context, userID int64) (bool, error) {
	info, err := c.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}
