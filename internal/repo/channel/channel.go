package channel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carousell/ct-go/pkg/logger"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/mycampus-app/quickchat/internal/config"
	"github.com/mycampus-app/quickchat/internal/models"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Inbound events waiting for the session to drain.
	eventBuffer = 64
)

var ErrChannelClosed = errors.New("channel closed")

var validate = validator.New()

// Conn is one live push-channel binding to a single room. After Close the
// conn is inert: Events is closed and no buffered event is delivered.
type Conn interface {
	Events() <-chan models.ChannelEvent
	SendTyping(user models.Participant, started bool) error
	Close() error
}

// Dialer opens a Conn for a room. The session holds at most one Conn at a
// time and dials a fresh one on every room switch.
type Dialer interface {
	Dial(ctx context.Context, roomID int64) (Conn, error)
}

type wsDialer struct {
	baseURL string
	log     *logger.Logger
}

func NewDialer(conf *config.Config) Dialer {
	return &wsDialer{
		baseURL: strings.TrimRight(conf.Portal.WSBaseURL, "/"),
		log:     logger.MustNamed("channel"),
	}
}

func (d *wsDialer) Dial(ctx context.Context, roomID int64) (Conn, error) {
	url := fmt.Sprintf("%s/ws/%d", d.baseURL, roomID)
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial channel for room %d: %w", roomID, err)
	}

	c := &wsConn{
		roomID: roomID,
		ws:     ws,
		events: make(chan models.ChannelEvent, eventBuffer),
		closed: make(chan struct{}),
		log:    d.log,
	}
	go c.readLoop()
	return c, nil
}

type wsConn struct {
	roomID  int64
	ws      *websocket.Conn
	events  chan models.ChannelEvent
	closed  chan struct{}
	once    sync.Once
	writeMu sync.Mutex
	log     *logger.Logger
}

func (c *wsConn) Events() <-chan models.ChannelEvent { return c.events }

func (c *wsConn) readLoop() {
	defer close(c.events)

	for {
		_, frame, err := c.ws.ReadMessage()
		if err != nil {
			if !c.isClosed() && websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warnw("channel connection lost", "room_id", c.roomID, "error", err)
			}
			return
		}

		ev, err := models.DecodeChannelEvent(c.roomID, frame)
		if err != nil {
			c.log.Warnw("dropping malformed channel frame", "room_id", c.roomID, "error", err)
			continue
		}
		if ev.Message != nil {
			if err := validate.Struct(ev.Message); err != nil {
				c.log.Warnw("dropping invalid message payload", "room_id", c.roomID, "error", err)
				continue
			}
		}

		// Teardown wins over delivery: nothing read after Close may reach
		// the session.
		if c.isClosed() {
			return
		}
		select {
		case c.events <- ev:
		default:
			c.log.Warnw("event buffer full, dropping frame", "room_id", c.roomID, "type", ev.Type)
		}
	}
}

func (c *wsConn) SendTyping(user models.Participant, started bool) error {
	if c.isClosed() {
		return ErrChannelClosed
	}

	frame := models.TypingFrame{Type: models.EventTypingStop, User: user}
	if started {
		frame.Type = models.EventTypingStart
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(frame)
}

func (c *wsConn) Close() error {
	var err error
	c.once.Do(func() {
		close(c.closed)
		c.writeMu.Lock()
		deadline := time.Now().Add(writeWait)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
