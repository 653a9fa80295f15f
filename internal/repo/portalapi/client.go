package portalapi

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/mycampus-app/quickchat/internal/config"
	"github.com/mycampus-app/quickchat/internal/models"
	"github.com/mycampus-app/quickchat/pkg/util"
)

// Client is the request-response side of the portal chat API. Every call may
// fail; callers fall back to local state rather than surfacing errors.
type Client interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
	History(ctx context.Context, roomID int64, offset, limit int, viewerID string) ([]models.Message, error)
	Send(ctx context.Context, roomID int64, sender models.Participant, content string) (*models.Message, error)
	Edit(ctx context.Context, id int64, content string) (*models.Message, error)
	Delete(ctx context.Context, id int64) error
	Hide(ctx context.Context, id int64, viewerID string) error
	ClearRoom(ctx context.Context, roomID int64, viewerID string) error
	Search(ctx context.Context, roomID int64, query string, limit int) ([]models.Message, error)
}

type portalClient struct {
	http *resty.Client
}

func NewClient(conf *config.Config) Client {
	c := util.NewRestyClient().SetBaseURL(conf.Portal.BaseURL)
	return &portalClient{http: c}
}

// NewClientWithBaseURL is used by tests pointing at an httptest server.
func NewClientWithBaseURL(baseURL string) Client {
	return &portalClient{http: util.NewRestyClient().SetBaseURL(baseURL)}
}

type sendRequest struct {
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
}

type editRequest struct {
	Content string `json:"content"`
}

type viewerRequest struct {
	UserID string `json:"user_id"`
}

func (c *portalClient) ListRooms(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&rooms).
		Get("/chatrooms")
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

func (c *portalClient) History(ctx context.Context, roomID int64, offset, limit int, viewerID string) ([]models.Message, error) {
	var msgs []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"offset":  strconv.Itoa(offset),
			"limit":   strconv.Itoa(limit),
			"user_id": viewerID,
		}).
		SetResult(&msgs).
		Get(fmt.Sprintf("/messages/%d", roomID))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("history for room %d: %w", roomID, err)
	}
	return msgs, nil
}

func (c *portalClient) Send(ctx context.Context, roomID int64, sender models.Participant, content string) (*models.Message, error) {
	var saved models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{SenderID: sender.ID, SenderName: sender.Name, Content: content}).
		SetResult(&saved).
		Post(fmt.Sprintf("/messages/%d", roomID))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("send to room %d: %w", roomID, err)
	}
	return &saved, nil
}

func (c *portalClient) Edit(ctx context.Context, id int64, content string) (*models.Message, error) {
	var saved models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(editRequest{Content: content}).
		SetResult(&saved).
		Patch(fmt.Sprintf("/messages/%d", id))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("edit message %d: %w", id, err)
	}
	return &saved, nil
}

func (c *portalClient) Delete(ctx context.Context, id int64) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(fmt.Sprintf("/messages/%d", id))
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("delete message %d: %w", id, err)
	}
	return nil
}

func (c *portalClient) Hide(ctx context.Context, id int64, viewerID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(viewerRequest{UserID: viewerID}).
		Post(fmt.Sprintf("/messages/%d/hide", id))
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("hide message %d: %w", id, err)
	}
	return nil
}

func (c *portalClient) ClearRoom(ctx context.Context, roomID int64, viewerID string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(viewerRequest{UserID: viewerID}).
		Post(fmt.Sprintf("/chatrooms/%d/clear", roomID))
	if err := checkResponse(resp, err); err != nil {
		return fmt.Errorf("clear room %d: %w", roomID, err)
	}
	return nil
}

func (c *portalClient) Search(ctx context.Context, roomID int64, query string, limit int) ([]models.Message, error) {
	var msgs []models.Message
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"limit": strconv.Itoa(limit),
		}).
		SetResult(&msgs).
		Get(fmt.Sprintf("/messages/%d/search", roomID))
	if err := checkResponse(resp, err); err != nil {
		return nil, fmt.Errorf("search room %d: %w", roomID, err)
	}
	return msgs, nil
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("portal api returned %s: %s", resp.Status(), resp.String())
	}
	return nil
}
