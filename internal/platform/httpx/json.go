package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// GetJSON fetches the URL and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, source, rawURL string, params url.Values, headers map[string]string, out any) error {
	body, err := c.Get(ctx, source, rawURL, params, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", source, err)
	}
	return nil
}
