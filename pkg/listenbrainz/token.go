package listenbrainz

import (
	"context"
	"net/http"
)

// TokenInfo is the result of validating a user token.
type TokenInfo struct {
	Valid    bool   // whether the token is valid
	UserName string // the account the token belongs to, when valid
}

// ValidateToken checks the installed token against the service. A malformed
// or revoked token comes back with Valid false and no error; errors are
// reserved for the check itself failing.
func (c *Client) ValidateToken(ctx context.Context) (*TokenInfo, error) {
	var resp struct {
		Valid    bool   `json:"valid"`
		UserName string `json:"user_name"`
	}
	if err := c.do(ctx, http.MethodGet, "/1/validate-token", nil, &resp); err != nil {
		return nil, err
	}
	return &TokenInfo{Valid: resp.Valid, UserName: resp.UserName}, nil
}
