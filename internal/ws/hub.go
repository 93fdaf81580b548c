package ws

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/imom29/CodeCollab/internal/room"
)

// inbound is one frame received from a client, queued for the hub loop.
type inbound struct {
	client *Client
	frame  []byte
}

// Hub owns room membership and relays client events to the registry and
// back out to room members. All inbound events are handled by a single
// goroutine, so events from one connection are processed in the order
// sent and registry mutations never interleave mid-operation.
type Hub struct {
	registry *room.Registry

	// Connected clients grouped by room ID. Guarded by mu so the HTTP
	// side and the retention sweeper can query membership.
	rooms map[string]map[*Client]bool
	mu    sync.RWMutex

	inbound    chan inbound
	unregister chan *Client
	stop       chan struct{}

	log *logrus.Entry
}

func NewHub(registry *room.Registry, logger *logrus.Logger) *Hub {
	return &Hub{
		registry:   registry,
		rooms:      make(map[string]map[*Client]bool),
		inbound:    make(chan inbound, 512),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		log:        logger.WithField("component", "hub"),
	}
}

// Run processes client events until Stop is called. It must run in its
// own goroutine.
func (h *Hub) Run() {
	h.log.Info("Hub is running")
	for {
		select {
		case msg := <-h.inbound:
			h.dispatch(msg)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.log.Info("Hub stopped")
			return
		}
	}
}

// Stop makes Run return. Connected clients are not closed; this runs
// only during process shutdown.
func (h *Hub) Stop() {
	close(h.stop)
}

func (h *Hub) dispatch(msg inbound) {
	// A disconnect can win the select race against frames the client
	// queued just before it; once removed, its frames are dead.
	if msg.client.closed {
		msg.client.log.Debug("Dropping frame from removed client")
		return
	}

	var env Envelope
	if err := json.Unmarshal(msg.frame, &env); err != nil {
		msg.client.log.WithError(err).Warn("Dropping malformed frame")
		return
	}

	switch env.Event {
	case EventJoinRoom:
		h.handleJoin(msg.client, env.Data)
	case EventCodeChange:
		h.handleCodeChange(msg.client, env.Data)
	case EventCreateFile:
		h.handleCreateFile(msg.client, env.Data)
	case EventDeleteFile:
		h.handleDeleteFile(msg.client, env.Data)
	default:
		msg.client.log.WithField("event", env.Event).Warn("Dropping unknown event")
	}
}

func (h *Hub) handleJoin(c *Client, data json.RawMessage) {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" {
		c.log.Warn("Dropping join-room without a room ID")
		return
	}

	h.mu.Lock()
	// A connection belongs to at most one room; a second join moves it.
	if c.roomID != "" && c.roomID != p.RoomID {
		if members, ok := h.rooms[c.roomID]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, c.roomID)
			}
		}
	}
	c.roomID = p.RoomID
	if _, ok := h.rooms[p.RoomID]; !ok {
		h.rooms[p.RoomID] = make(map[*Client]bool)
	}
	h.rooms[p.RoomID][c] = true
	memberCount := len(h.rooms[p.RoomID])
	h.mu.Unlock()

	h.registry.EnsureRoom(p.RoomID)

	frame, err := encode(EventInitFiles, h.registry.ListFiles(p.RoomID))
	if err != nil {
		c.log.WithError(err).Error("Failed to encode init-files")
		return
	}
	// The current file list goes to the joining connection only.
	h.sendTo(c, frame)

	c.log.WithFields(logrus.Fields{
		"room_id": p.RoomID,
		"members": memberCount,
	}).Info("Client joined room")
}

func (h *Hub) handleCodeChange(c *Client, data json.RawMessage) {
	var p CodeChangePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.FileName == "" {
		c.log.Warn("Dropping code-change with missing fields")
		return
	}

	outcome := h.registry.SetFileCode(p.RoomID, p.FileName, p.NewCode)
	if outcome != room.Applied {
		c.log.WithFields(logrus.Fields{
			"room_id":   p.RoomID,
			"file_name": p.FileName,
			"outcome":   outcome.String(),
		}).Debug("code-change ignored")
		return
	}

	frame, err := encode(EventRemoteCodeChange, RemoteCodeChangePayload{
		FileName: p.FileName,
		NewCode:  p.NewCode,
	})
	if err != nil {
		c.log.WithError(err).Error("Failed to encode remote-code-change")
		return
	}
	// Everyone in the room except the editor who sent it.
	h.broadcast(p.RoomID, frame, c)
}

func (h *Hub) handleCreateFile(c *Client, data json.RawMessage) {
	var p CreateFilePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.FileName == "" {
		c.log.Warn("Dropping create-file with missing fields")
		return
	}

	f, outcome := h.registry.CreateFile(p.RoomID, p.FileName)
	if outcome != room.Applied {
		c.log.WithFields(logrus.Fields{
			"room_id":   p.RoomID,
			"file_name": p.FileName,
			"outcome":   outcome.String(),
		}).Debug("create-file ignored")
		return
	}

	frame, err := encode(EventFileCreated, FileCreatedPayload{FileName: f.FileName})
	if err != nil {
		c.log.WithError(err).Error("Failed to encode file-created")
		return
	}
	// The sender needs this too, so its UI picks up the new file.
	h.broadcast(p.RoomID, frame, nil)
}

func (h *Hub) handleDeleteFile(c *Client, data json.RawMessage) {
	var p DeleteFilePayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == "" || p.FileName == "" {
		c.log.Warn("Dropping delete-file with missing fields")
		return
	}

	remaining, outcome := h.registry.DeleteFile(p.RoomID, p.FileName)
	if outcome == room.IgnoredRoomNotFound {
		c.log.WithField("room_id", p.RoomID).Debug("delete-file ignored: room not found")
		return
	}
	if outcome == room.IgnoredFileNotFound {
		// The list is unchanged but the announcement still goes out; the
		// clients re-render from whatever list they receive.
		c.log.WithFields(logrus.Fields{
			"room_id":   p.RoomID,
			"file_name": p.FileName,
		}).Debug("delete-file matched nothing, rebroadcasting unchanged list")
	}

	frame, err := encode(EventFileDeleted, remaining)
	if err != nil {
		c.log.WithError(err).Error("Failed to encode file-deleted")
		return
	}
	h.broadcast(p.RoomID, frame, nil)
}

// broadcast queues frame for every member of roomID, skipping exclude if
// non-nil. Slow clients with a full send buffer are skipped rather than
// allowed to stall the relay.
func (h *Hub) broadcast(roomID string, frame []byte, exclude *Client) {
	h.mu.RLock()
	recipients := make([]*Client, 0, len(h.rooms[roomID]))
	for client := range h.rooms[roomID] {
		if client != exclude {
			recipients = append(recipients, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range recipients {
		h.sendTo(client, frame)
	}
}

func (h *Hub) sendTo(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		c.log.Warn("Send buffer full, dropping frame")
	}
}

func (h *Hub) removeClient(c *Client) {
	if c.closed {
		return
	}
	c.closed = true

	h.mu.Lock()
	if c.roomID != "" {
		if members, ok := h.rooms[c.roomID]; ok && members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, c.roomID)
				// The registry keeps the room's files; only the
				// connection bookkeeping goes away.
				h.log.WithField("room_id", c.roomID).Debug("Room has no connected clients")
			}
		}
	}
	h.mu.Unlock()

	close(c.send)
	c.log.Info("Client disconnected")
}

// IsActive reports whether any client is currently connected to roomID.
func (h *Hub) IsActive(roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID]) > 0
}

// RoomCount returns the number of rooms with at least one connection.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, members := range h.rooms {
		total += len(members)
	}
	return total
}
