package loader

import (
	"sync"

	"github.com/quizhive/quizhive/internal/domain"
)

// RequestContext carries the authenticated principal for one inbound request.
//
// The principal is mutable because loader keys may be queued before the
// authentication layer attaches the user; context-filtered batch functions
// therefore read it at dispatch time, never at Load time. The principal is
// fixed once set; there is no re-authentication within a request.
//
// RequestContexts are never shared across requests and there is no process
// global fallback: NewRegistry requires one explicitly.
type RequestContext struct {
	mu        sync.RWMutex
	principal *domain.User
}

func NewRequestContext() *RequestContext {
	return &RequestContext{}
}

// SetPrincipal attaches the authenticated user. Passing nil leaves the
// request anonymous.
func (rc *RequestContext) SetPrincipal(u *domain.User) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.principal = u
}

// Principal returns the authenticated user, or nil for anonymous requests.
func (rc *RequestContext) Principal() *domain.User {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.principal
}
