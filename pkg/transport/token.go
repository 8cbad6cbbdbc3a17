package transport

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoToken is returned when a token source has nothing to offer.
var ErrNoToken = errors.New("no authorization token")

// XBLToken is an Xbox Live user token and the user hash it was issued for.
type XBLToken struct {
	UserHash string
	Token    string
}

// AuthorizationHeader formats "XBL3.0 x=<userhash>;<token>".
func (t XBLToken) AuthorizationHeader(context.Context) (string, error) {
	if t.UserHash == "" || t.Token == "" {
		return "", ErrNoToken
	}
	return fmt.Sprintf("XBL3.0 x=%s;%s", t.UserHash, t.Token), nil
}

// StaticHeader is a preformatted Authorization header value.
type StaticHeader string

// AuthorizationHeader returns h.
func (h StaticHeader) AuthorizationHeader(context.Context) (string, error) {
	if h == "" {
		return "", ErrNoToken
	}
	return string(h), nil
}

// TokenSourceFunc adapts a function to TokenSource. Use it to refresh tokens
// on every reconnect.
type TokenSourceFunc func(ctx context.Context) (string, error)

// AuthorizationHeader calls f.
func (f TokenSourceFunc) AuthorizationHeader(ctx context.Context) (string, error) {
	return f(ctx)
}
