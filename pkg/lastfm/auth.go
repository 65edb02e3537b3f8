package lastfm

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
)

// GetToken requests an authentication token from Last.fm.
//
// This is the first step of the authorization flow. The token is worthless
// until the user approves it at the URL returned by AuthURL, after which it
// can be exchanged for a session key with GetSession. Tokens expire after
// 60 minutes.
func (c *Client) GetToken(ctx context.Context) (string, error) {
	inner, err := c.call(ctx, "auth.getToken", nil, false)
	if err != nil {
		return "", err
	}

	var resp struct {
		Token string `xml:"token"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return "", fmt.Errorf("lastfm: failed to parse token response: %w", err)
	}
	if resp.Token == "" {
		return "", fmt.Errorf("lastfm: empty token in response")
	}
	return resp.Token, nil
}

// AuthURL returns the page where the user authorizes the given token.
func (c *Client) AuthURL(token string) string {
	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("token", token)
	return AuthBaseURL + "?" + q.Encode()
}

// GetSession exchanges an authorized token for a session key.
//
// Call this after the user has approved the token at AuthURL. The returned
// key does not expire; store it and install it with SetSessionKey. Until
// the user approves, Last.fm answers with error 14 (unauthorized token).
func (c *Client) GetSession(ctx context.Context, token string) (*Session, error) {
	inner, err := c.call(ctx, "auth.getSession", map[string]string{"token": token}, false)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Session struct {
			Name       string `xml:"name"`
			Key        string `xml:"key"`
			Subscriber int    `xml:"subscriber"`
		} `xml:"session"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse session response: %w", err)
	}
	if resp.Session.Key == "" {
		return nil, fmt.Errorf("lastfm: empty session key in response")
	}

	return &Session{
		Key:        resp.Session.Key,
		Username:   resp.Session.Name,
		Subscriber: resp.Session.Subscriber == 1,
	}, nil
}

// unmarshalInner parses the inner XML of an envelope by wrapping it in a
// synthetic root element.
func unmarshalInner(inner []byte, v interface{}) error {
	wrapped := append(append([]byte("<root>"), inner...), []byte("</root>")...)
	return xml.Unmarshal(wrapped, v)
}
