package devserver

import (
	"sync"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/gorilla/websocket"
)

// Hub fans realtime events out to every socket joined to a room. Writes are
// serialized under the hub lock; a failed write evicts the connection.
type Hub struct {
	mu    sync.Mutex
	rooms map[int64]map[*websocket.Conn]struct{}
	log   *logger.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[int64]map[*websocket.Conn]struct{}),
		log:   logger.MustNamed("hub"),
	}
}

func (h *Hub) Join(roomID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*websocket.Conn]struct{})
	}
	h.rooms[roomID][conn] = struct{}{}
}

func (h *Hub) Leave(roomID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(roomID, conn)
}

func (h *Hub) leaveLocked(roomID int64, conn *websocket.Conn) {
	if conns, ok := h.rooms[roomID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

// Broadcast sends v as JSON to every socket in the room, dropping broken
// connections along the way.
func (h *Hub) Broadcast(roomID int64, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.rooms[roomID] {
		if err := conn.WriteJSON(v); err != nil {
			h.log.Warnw("dropping broken room socket", "room_id", roomID, "error", err)
			h.leaveLocked(roomID, conn)
			_ = conn.Close()
		}
	}
}
