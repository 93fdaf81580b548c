package ws

import "encoding/json"

// Event names are part of the wire contract with the browser client and
// are case-sensitive.
const (
	// Client to server.
	EventJoinRoom   = "join-room"
	EventCodeChange = "code-change"
	EventCreateFile = "create-file"
	EventDeleteFile = "delete-file"

	// Server to client.
	EventInitFiles        = "init-files"
	EventRemoteCodeChange = "remote-code-change"
	EventFileCreated      = "file-created"
	EventFileDeleted      = "file-deleted"
)

// Envelope is the frame exchanged over the socket: an event name plus an
// event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// JoinRoomPayload announces which room the connection belongs to.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// CodeChangePayload carries a full-text replacement for one file. NewCode
// may legitimately be empty (the user cleared the buffer).
type CodeChangePayload struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
	NewCode  string `json:"newCode"`
}

// CreateFilePayload asks the relay to append a new file to a room.
type CreateFilePayload struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
}

// DeleteFilePayload asks the relay to remove a file from a room.
type DeleteFilePayload struct {
	RoomID   string `json:"roomId"`
	FileName string `json:"fileName"`
}

// RemoteCodeChangePayload is relayed to the other members of a room after
// an accepted edit.
type RemoteCodeChangePayload struct {
	FileName string `json:"fileName"`
	NewCode  string `json:"newCode"`
}

// FileCreatedPayload announces a new file to every member of a room.
type FileCreatedPayload struct {
	FileName string `json:"fileName"`
}

func encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
