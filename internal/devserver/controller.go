package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/mycampus-app/quickchat/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dev server: accept any origin.
		return true
	},
}

type Controller interface {
	Health(c echo.Context) error
	ListRooms(c echo.Context) error
	History(c echo.Context) error
	SendMessage(c echo.Context) error
	EditMessage(c echo.Context) error
	DeleteMessage(c echo.Context) error
	HideMessage(c echo.Context) error
	ClearRoom(c echo.Context) error
	Search(c echo.Context) error
	ServeRoomSocket(c echo.Context) error
}

type controller struct {
	store *Store
	hub   *Hub
	log   *logger.Logger
}

func NewController(store *Store, hub *Hub) Controller {
	return &controller{
		store: store,
		hub:   hub,
		log:   logger.MustNamed("devserver"),
	}
}

type sendMessageRequest struct {
	SenderID   string `json:"sender_id" validate:"required"`
	SenderName string `json:"sender_name" validate:"required"`
	Content    string `json:"content" validate:"required"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type viewerStateRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *controller) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "quickchat-devserver",
	})
}

func (h *controller) ListRooms(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.Rooms())
}

// History serves GET /messages/:id where :id is the room.
func (h *controller) History(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	if !h.store.HasRoom(roomID) {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	viewer := c.QueryParam("user_id")
	return c.JSON(http.StatusOK, h.store.History(roomID, offset, limit, viewer))
}

func (h *controller) SendMessage(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.store.Append(roomID, req.SenderID, req.SenderName, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}

	h.hub.Broadcast(roomID, map[string]any{
		"type": models.EventMessageNew,
		"data": msg,
	})
	return c.JSON(http.StatusOK, msg)
}

func (h *controller) EditMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, ok := h.store.Edit(id, req.Content)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "message not found")
	}

	h.hub.Broadcast(msg.RoomID, map[string]any{
		"type": models.EventMessageEdited,
		"data": map[string]any{"id": msg.ID, "content": msg.Content},
	})
	return c.JSON(http.StatusOK, msg)
}

func (h *controller) DeleteMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	roomID, ok := h.store.Delete(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "message not found")
	}

	h.hub.Broadcast(roomID, map[string]any{
		"type": models.EventMessageDeleted,
		"id":   id,
	})
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *controller) HideMessage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req viewerStateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.store.Hide(id, req.UserID)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *controller) ClearRoom(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	var req viewerStateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	h.store.Clear(roomID, req.UserID)
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Search serves GET /messages/:id/search where :id is the room.
func (h *controller) Search(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	return c.JSON(http.StatusOK, h.store.Search(roomID, c.QueryParam("q"), limit))
}

// typingRelay is the only inbound frame the room socket accepts.
type typingRelay struct {
	Type models.EventType    `json:"type"`
	User *models.Participant `json:"user"`
}

// ServeRoomSocket upgrades GET /ws/:id and relays typing announcements to
// everyone in the room. All other inbound frames are ignored.
func (h *controller) ServeRoomSocket(c echo.Context) error {
	roomID, err := pathID(c)
	if err != nil {
		return err
	}
	if !h.store.HasRoom(roomID) {
		return echo.NewHTTPError(http.StatusNotFound, "room not found")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	h.hub.Join(roomID, conn)

	go func() {
		defer func() {
			h.hub.Leave(roomID, conn)
			_ = conn.Close()
		}()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var relay typingRelay
			if err := json.Unmarshal(frame, &relay); err != nil {
				continue
			}
			if relay.User == nil {
				continue
			}
			if relay.Type != models.EventTypingStart && relay.Type != models.EventTypingStop {
				continue
			}
			h.hub.Broadcast(roomID, map[string]any{
				"type": relay.Type,
				"user": relay.User,
				"ts":   time.Now().UTC().Format(time.RFC3339),
			})
		}
	}()
	return nil
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}
