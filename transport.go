package fitauth

import (
	"net/http"
	"sync"
)

// Transport is the slice of an HTTP exchange the Engine needs: inbound
// cookies and outbound cookies.
type Transport interface {
	Cookie(name string) (*http.Cookie, error)
	SetCookie(c *http.Cookie)
}

// HTTPTransport adapts a request/response pair to [Transport].
//
// Cookies written during the exchange shadow the inbound ones, so a cookie
// deleted by the handler reads back as absent for the rest of the request.
type HTTPTransport struct {
	w http.ResponseWriter
	r *http.Request

	mu       sync.Mutex
	outbound map[string]*http.Cookie
}

// NewHTTPTransport wraps w and r. Either may be nil in tests that only read
// or only write.
func NewHTTPTransport(w http.ResponseWriter, r *http.Request) *HTTPTransport {
	return &HTTPTransport{
		w:        w,
		r:        r,
		outbound: make(map[string]*http.Cookie),
	}
}

// Cookie returns the named cookie, or [http.ErrNoCookie].
func (t *HTTPTransport) Cookie(name string) (*http.Cookie, error) {
	t.mu.Lock()
	c, ok := t.outbound[name]
	t.mu.Unlock()

	if ok {
		if c.MaxAge < 0 || c.Value == "" {
			return nil, http.ErrNoCookie
		}
		return c, nil
	}
	if t.r == nil {
		return nil, http.ErrNoCookie
	}
	return t.r.Cookie(name)
}

// SetCookie writes c to the response and records it for later reads.
func (t *HTTPTransport) SetCookie(c *http.Cookie) {
	if c == nil {
		return
	}
	t.mu.Lock()
	t.outbound[c.Name] = c
	t.mu.Unlock()

	if t.w != nil {
		http.SetCookie(t.w, c)
	}
}
