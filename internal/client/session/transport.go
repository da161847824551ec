package session

import (
	"io"
	"net/http"
)

// Transport is an http.RoundTripper that attaches the session's bearer
// token to every request and, on a 401, forces one refresh and retries the
// request exactly once. A second 401 after the retry means the session is
// beyond saving: the manager logs out locally and the response is returned
// to the caller as-is.
type Transport struct {
	Manager *Manager
	Base    http.RoundTripper // nil means http.DefaultTransport
}

var _ http.RoundTripper = (*Transport)(nil)

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := t.Manager.Token(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := t.base().RoundTrip(withBearer(req, tok))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	// A consumed body cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	fresh, err := t.Manager.retryToken(req.Context(), tok)
	if err != nil {
		return nil, err
	}

	retry := withBearer(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	resp, err = t.base().RoundTrip(retry)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		// Fresh token, still rejected: forced logout.
		t.Manager.expire(req.Context())
	}
	return resp, nil
}

// withBearer clones the request (RoundTrippers must not mutate their input)
// and sets the Authorization header.
func withBearer(req *http.Request, tok string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+tok)
	return clone
}
