package identity

import (
	"net/http"
	"strings"
)

// Resolver maps an incoming request to the actor performing it
type Resolver struct {
	verifier     SessionVerifier
	anonymousIDs bool
}

// NewResolver creates a resolver. A nil verifier treats every visitor as
// unauthenticated; with anonymousIDs off, visitors are keyed by address.
func NewResolver(verifier SessionVerifier, anonymousIDs bool) *Resolver {
	return &Resolver{
		verifier:     verifier,
		anonymousIDs: anonymousIDs,
	}
}

// Resolve never fails: a missing or invalid token falls back to the
// anonymous identity of the request.
func (r *Resolver) Resolve(req *http.Request) Actor {
	ip := ClientIP(req)

	if session := r.session(req); session != nil {
		return Registered(*session, ip)
	}
	if !r.anonymousIDs {
		return AddressOnly(ip)
	}
	return Anonymous(PseudoID(ip, req.UserAgent()), ip)
}

func (r *Resolver) session(req *http.Request) *Session {
	if r.verifier == nil {
		return nil
	}
	token := BearerToken(req.Header.Get("Authorization"))
	if token == "" {
		return nil
	}
	session, err := r.verifier.Verify(token)
	if err != nil {
		return nil
	}
	return session
}

// BearerToken extracts the credential from an Authorization header value
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
