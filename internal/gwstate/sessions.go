package gwstate

// SessionBinding is the enrichment sessions.switch reports back after
// resolve, drawn from the chat component (§4.5 "sessions.switch").
type SessionBinding struct {
	SessionKey    string
	ProjectID     string
	Replying      bool
	ThinkingText  string
	VoicePending  bool
}

// ActiveSessions tracks conn_id -> session_key and conn_id -> project_id
// (§3 "Active-session map").
type ActiveSessions struct {
	sessionKeys guarded[string, string]
	projectIDs  guarded[string, string]
}

// NewActiveSessions constructs empty session/project maps.
func NewActiveSessions() *ActiveSessions {
	return &ActiveSessions{
		sessionKeys: newGuarded[string, string](),
		projectIDs:  newGuarded[string, string](),
	}
}

// Switch records the connection's current session key and, if provided, its
// project id.
func (a *ActiveSessions) Switch(connID, sessionKey, projectID string) {
	a.sessionKeys.Set(connID, sessionKey)
	if projectID != "" {
		a.projectIDs.Set(connID, projectID)
	}
}

// SessionKey returns the session key bound to connID, if any.
func (a *ActiveSessions) SessionKey(connID string) (string, bool) {
	return a.sessionKeys.Get(connID)
}

// ProjectID returns the project id bound to connID, if any.
func (a *ActiveSessions) ProjectID(connID string) (string, bool) {
	return a.projectIDs.Get(connID)
}

// Forget drops both bindings for connID, called on socket close.
func (a *ActiveSessions) Forget(connID string) {
	a.sessionKeys.Delete(connID)
	a.projectIDs.Delete(connID)
}
