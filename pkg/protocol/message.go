// Package protocol implements the chat wire vocabulary and its framing.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrUnparseable is returned by Decode for payloads that are not one of the
// known message shapes.
var ErrUnparseable = errors.New("unparseable message")

// ReasonDuplicateNickname is the failure reason sent when a nickname is taken.
const ReasonDuplicateNickname = "duplicate nickname"

// Wire values of the type discriminator.
const (
	wireLogin            = "login"
	wireMessage          = "message"
	wireNewUser          = "newuser"
	wireUserDisconnected = "userdisconnected"
)

// Field names.
const (
	fieldType     = "type"
	fieldNickname = "nickname"
	fieldSuccess  = "success"
	fieldReason   = "reason"
	fieldText     = "text"
	fieldSender   = "sender"
)

// MessageType represents the type of message
type MessageType int

const (
	// MessageTypeLogin is a client request to take a nickname.
	MessageTypeLogin MessageType = iota
	// MessageTypeLoginResult is the server's answer to a login request.
	MessageTypeLoginResult
	// MessageTypeChat is a chat line. Sender is set on server->client traffic.
	MessageTypeChat
	// MessageTypeUserJoined announces a newly logged in user.
	MessageTypeUserJoined
	// MessageTypeUserLeft announces a logged in user's departure.
	MessageTypeUserLeft
)

// String returns the string representation of MessageType
func (mt MessageType) String() string {
	switch mt {
	case MessageTypeLogin:
		return "LOGIN"
	case MessageTypeLoginResult:
		return "LOGIN_RESULT"
	case MessageTypeChat:
		return "CHAT"
	case MessageTypeUserJoined:
		return "USER_JOINED"
	case MessageTypeUserLeft:
		return "USER_LEFT"
	default:
		return "UNKNOWN"
	}
}

// Message is one protocol message. Which fields are meaningful depends on Type:
//
//	Login        Nickname
//	LoginResult  Success, Reason (only when Success is false)
//	Chat         Text, Sender (optional)
//	UserJoined   Nickname
//	UserLeft     Nickname
type Message struct {
	Type     MessageType
	Nickname string
	Success  bool
	Reason   string
	Text     string
	Sender   string
}

// Login builds a login request.
func Login(nickname string) Message {
	return Message{Type: MessageTypeLogin, Nickname: nickname}
}

// LoginAccepted builds a successful login result.
func LoginAccepted() Message {
	return Message{Type: MessageTypeLoginResult, Success: true}
}

// LoginRejected builds a failed login result carrying reason.
func LoginRejected(reason string) Message {
	return Message{Type: MessageTypeLoginResult, Reason: reason}
}

// Chat builds an outbound chat line without a sender.
func Chat(text string) Message {
	return Message{Type: MessageTypeChat, Text: text}
}

// ChatFrom builds a relayed chat line attributed to sender.
func ChatFrom(sender, text string) Message {
	return Message{Type: MessageTypeChat, Text: text, Sender: sender}
}

// UserJoined builds a presence notice for a new user.
func UserJoined(nickname string) Message {
	return Message{Type: MessageTypeUserJoined, Nickname: nickname}
}

// UserLeft builds a presence notice for a departed user.
func UserLeft(nickname string) Message {
	return Message{Type: MessageTypeUserLeft, Nickname: nickname}
}

// Encode encodes the message into a compact JSON object.
func (m *Message) Encode() ([]byte, error) {
	s, err := m.toStruct()
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Map keys come out sorted, the same order Qt's compact JSON uses.
	if err := enc.Encode(s.AsMap()); err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode decodes a JSON payload into the message. Any payload that does not
// match one of the known shapes yields an error wrapping ErrUnparseable and
// leaves m untouched. A login object carrying success decodes as a login
// result, and sender is optional on chat lines.
func (m *Message) Decode(data []byte) error {
	return m.decode(data, anyDirection)
}

// DecodeFromClient decodes a payload received by the server. A login object
// is always a request, and the sender of a chat line is ignored.
func (m *Message) DecodeFromClient(data []byte) error {
	return m.decode(data, fromClient)
}

// DecodeFromServer decodes a payload received by a client. A login object is
// always a result and must carry a bool success; a chat line must carry a
// string sender, which may be empty.
func (m *Message) DecodeFromServer(data []byte) error {
	return m.decode(data, fromServer)
}

// direction selects how the shared login and message tags are read.
type direction int

const (
	anyDirection direction = iota
	fromClient
	fromServer
)

func (m *Message) decode(data []byte, dir direction) error {
	s := &structpb.Struct{}
	if err := protojson.Unmarshal(data, s); err != nil {
		return fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	decoded, err := fromStruct(s, dir)
	if err != nil {
		return err
	}
	*m = decoded
	return nil
}

// toStruct converts the Message to its structured representation.
func (m *Message) toStruct() (*structpb.Struct, error) {
	fields := make(map[string]*structpb.Value, 3)
	switch m.Type {
	case MessageTypeLogin:
		fields[fieldType] = structpb.NewStringValue(wireLogin)
		fields[fieldNickname] = structpb.NewStringValue(m.Nickname)
	case MessageTypeLoginResult:
		fields[fieldType] = structpb.NewStringValue(wireLogin)
		fields[fieldSuccess] = structpb.NewBoolValue(m.Success)
		if !m.Success {
			fields[fieldReason] = structpb.NewStringValue(m.Reason)
		}
	case MessageTypeChat:
		fields[fieldType] = structpb.NewStringValue(wireMessage)
		fields[fieldText] = structpb.NewStringValue(m.Text)
		if m.Sender != "" {
			fields[fieldSender] = structpb.NewStringValue(m.Sender)
		}
	case MessageTypeUserJoined:
		fields[fieldType] = structpb.NewStringValue(wireNewUser)
		fields[fieldNickname] = structpb.NewStringValue(m.Nickname)
	case MessageTypeUserLeft:
		fields[fieldType] = structpb.NewStringValue(wireUserDisconnected)
		fields[fieldNickname] = structpb.NewStringValue(m.Nickname)
	default:
		return nil, fmt.Errorf("unknown message type %d", int(m.Type))
	}
	return &structpb.Struct{Fields: fields}, nil
}

// fromStruct validates s against the schema of its declared type as seen
// travelling in dir.
func fromStruct(s *structpb.Struct, dir direction) (Message, error) {
	fields := s.GetFields()

	typ, ok := stringField(fields, fieldType)
	if !ok {
		return Message{}, fmt.Errorf("%w: missing type", ErrUnparseable)
	}

	switch strings.ToLower(typ) {
	case wireLogin:
		_, hasSuccess := fields[fieldSuccess]
		if dir == fromServer || (dir == anyDirection && hasSuccess) {
			return loginResultFromFields(fields)
		}
		nickname, ok := stringField(fields, fieldNickname)
		if !ok {
			return Message{}, fmt.Errorf("%w: login without nickname", ErrUnparseable)
		}
		return Login(nickname), nil
	case wireMessage:
		text, ok := stringField(fields, fieldText)
		if !ok {
			return Message{}, fmt.Errorf("%w: message without text", ErrUnparseable)
		}
		switch dir {
		case fromClient:
			return Chat(text), nil
		case fromServer:
			sender, ok := stringField(fields, fieldSender)
			if !ok {
				return Message{}, fmt.Errorf("%w: message without sender", ErrUnparseable)
			}
			return ChatFrom(sender, text), nil
		}
		sender := ""
		if _, present := fields[fieldSender]; present {
			if sender, ok = stringField(fields, fieldSender); !ok {
				return Message{}, fmt.Errorf("%w: sender is not a string", ErrUnparseable)
			}
		}
		return ChatFrom(sender, text), nil
	case wireNewUser:
		nickname, ok := stringField(fields, fieldNickname)
		if !ok {
			return Message{}, fmt.Errorf("%w: newuser without nickname", ErrUnparseable)
		}
		return UserJoined(nickname), nil
	case wireUserDisconnected:
		nickname, ok := stringField(fields, fieldNickname)
		if !ok {
			return Message{}, fmt.Errorf("%w: userdisconnected without nickname", ErrUnparseable)
		}
		return UserLeft(nickname), nil
	default:
		return Message{}, fmt.Errorf("%w: unknown type %q", ErrUnparseable, typ)
	}
}

func loginResultFromFields(fields map[string]*structpb.Value) (Message, error) {
	success, ok := boolField(fields, fieldSuccess)
	if !ok {
		return Message{}, fmt.Errorf("%w: success is not a bool", ErrUnparseable)
	}
	if success {
		return LoginAccepted(), nil
	}
	reason := ""
	if _, present := fields[fieldReason]; present {
		if reason, ok = stringField(fields, fieldReason); !ok {
			return Message{}, fmt.Errorf("%w: reason is not a string", ErrUnparseable)
		}
	}
	return LoginRejected(reason), nil
}

func stringField(fields map[string]*structpb.Value, name string) (string, bool) {
	v, ok := fields[name].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", false
	}
	return v.StringValue, true
}

func boolField(fields map[string]*structpb.Value, name string) (bool, bool) {
	v, ok := fields[name].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, false
	}
	return v.BoolValue, true
}
