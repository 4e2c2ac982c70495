package websocket

import "fmt"

// AuthError reasons, reported at handshake time. A failed authentication is
// terminal for that connection attempt.
const (
	ReasonMissing      = "missing"
	ReasonInvalid      = "invalid"
	ReasonExpired      = "expired"
	ReasonUserNotFound = "user-not-found"
)

// AuthError rejects a handshake before any room join is possible.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return "authentication error: no token provided"
	case ReasonExpired:
		return "authentication error: token expired"
	case ReasonUserNotFound:
		return "authentication error: user not found"
	default:
		return "authentication error: invalid token"
	}
}

// AccessError is a join-time failure. The connection stays alive but is not
// added to the room.
type AccessError struct {
	UserID      int
	WorkspaceID int
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("user %d is not a member of workspace %d", e.UserID, e.WorkspaceID)
}
