package lastfm

import (
	"context"
	"fmt"
)

// ValidateSession checks the installed session key against the service by
// fetching the authenticated user's profile. It returns the username the
// key belongs to. A rejected key surfaces as *Error with code 9.
func (c *Client) ValidateSession(ctx context.Context) (string, error) {
	inner, err := c.call(ctx, "user.getInfo", nil, true)
	if err != nil {
		return "", err
	}

	var resp struct {
		User struct {
			Name string `xml:"name"`
		} `xml:"user"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return "", fmt.Errorf("lastfm: failed to parse user response: %w", err)
	}
	if resp.User.Name == "" {
		return "", fmt.Errorf("lastfm: empty username in response")
	}
	return resp.User.Name, nil
}
