package identity

import (
	"strconv"
)

// Kind tags which identity source an Actor was resolved from
type Kind int

const (
	// KindAddress identifies a visitor by network address alone
	KindAddress Kind = iota
	// KindAnonymous identifies a visitor by the ip/user-agent pseudo-id
	KindAnonymous
	// KindRegistered identifies a signed-in account
	KindRegistered
)

func (k Kind) String() string {
	switch k {
	case KindRegistered:
		return "registered"
	case KindAnonymous:
		return "anonymous"
	default:
		return "address"
	}
}

// Actor is the resolved identity behind a like or a comment.
// Only the field matching Kind is authoritative; the address is kept for
// every kind because it is recorded on rows.
type Actor struct {
	kind        Kind
	userID      int64
	anonymousID string
	address     string
	isAdmin     bool
	name        string
}

// Registered builds an actor for an authenticated session
func Registered(s Session, address string) Actor {
	return Actor{
		kind:    KindRegistered,
		userID:  s.UserID,
		address: normalizeOrUnknown(address),
		isAdmin: s.IsAdmin,
		name:    s.Name,
	}
}

// Anonymous builds an actor keyed by a pseudo-id
func Anonymous(pseudoID, address string) Actor {
	return Actor{
		kind:        KindAnonymous,
		anonymousID: pseudoID,
		address:     normalizeOrUnknown(address),
	}
}

// AddressOnly builds an actor keyed by its network address
func AddressOnly(address string) Actor {
	return Actor{
		kind:    KindAddress,
		address: normalizeOrUnknown(address),
	}
}

// AuthorOf rebuilds the authoritative identity stored on a row, applying
// registered > anonymous > address precedence.
func AuthorOf(userID *int64, anonymousID *string, address string) Actor {
	if userID != nil {
		return Actor{kind: KindRegistered, userID: *userID, address: address}
	}
	if anonymousID != nil && *anonymousID != "" {
		return Actor{kind: KindAnonymous, anonymousID: *anonymousID, address: address}
	}
	return Actor{kind: KindAddress, address: normalizeOrUnknown(address)}
}

func (a Actor) Kind() Kind { return a.kind }

// UserID returns the account id for registered actors
func (a Actor) UserID() (int64, bool) {
	return a.userID, a.kind == KindRegistered
}

// AnonymousID returns the pseudo-id for anonymous actors
func (a Actor) AnonymousID() (string, bool) {
	return a.anonymousID, a.kind == KindAnonymous
}

func (a Actor) Address() string { return a.address }

func (a Actor) Name() string { return a.name }

// IsAnonymous reports whether the actor has no account
func (a Actor) IsAnonymous() bool { return a.kind != KindRegistered }

// IsAdmin reports administrator privilege; only registered actors have it
func (a Actor) IsAdmin() bool { return a.kind == KindRegistered && a.isAdmin }

// Key renders the authoritative identity as a single string
func (a Actor) Key() string {
	switch a.kind {
	case KindRegistered:
		return "user:" + strconv.FormatInt(a.userID, 10)
	case KindAnonymous:
		return "anon:" + a.anonymousID
	default:
		return "ip:" + a.address
	}
}

// Equal compares authoritative identities; admin flags and recorded
// addresses of non-address actors are ignored.
func (a Actor) Equal(b Actor) bool {
	return a.Key() == b.Key()
}

// CanModify reports whether the actor may edit or delete content authored by author
func (a Actor) CanModify(author Actor) bool {
	return a.IsAdmin() || a.Equal(author)
}

func (a Actor) String() string { return a.Key() }

func normalizeOrUnknown(address string) string {
	if address == "" {
		return Unknown
	}
	return address
}
