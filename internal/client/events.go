package client

// EventType identifies what happened on a Session.
type EventType int

const (
	// EventConnected fires once the connection to the server is up.
	EventConnected EventType = iota
	// EventLoggedIn fires when the server accepts the nickname.
	EventLoggedIn
	// EventLoginFailed fires when the server rejects the nickname; Reason
	// says why.
	EventLoginFailed
	// EventMessageReceived carries a chat line in Sender and Text.
	EventMessageReceived
	// EventUserJoined carries the new user's Nickname.
	EventUserJoined
	// EventUserLeft carries the departed user's Nickname.
	EventUserLeft
	// EventDisconnected fires when the connection is gone, whoever closed it.
	EventDisconnected
	// EventSocketError carries a transport failure in Err. EventDisconnected
	// follows it.
	EventSocketError
)

// String returns the string representation of EventType
func (t EventType) String() string {
	switch t {
	case EventConnected:
		return "CONNECTED"
	case EventLoggedIn:
		return "LOGGED_IN"
	case EventLoginFailed:
		return "LOGIN_FAILED"
	case EventMessageReceived:
		return "MESSAGE_RECEIVED"
	case EventUserJoined:
		return "USER_JOINED"
	case EventUserLeft:
		return "USER_LEFT"
	case EventDisconnected:
		return "DISCONNECTED"
	case EventSocketError:
		return "SOCKET_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is delivered to the presentation layer through Session.Events.
type Event struct {
	Type     EventType
	Nickname string
	Sender   string
	Text     string
	Reason   string
	Err      error
}
