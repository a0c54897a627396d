package client

import (
	"fmt"

	"github.com/dmitrijs2005/marketlist/internal/client/models"
)

type credentialsRequest struct {
	Username     string `json:"username"`
	UserPassword string `json:"userpassword"`
}

type userResponse struct {
	Username string `json:"username"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type pingResponse struct {
	Message string `json:"message"`
}

type itemRequest struct {
	ItemName   string `json:"item_name"`
	ItemStatus string `json:"item_status"`
	UserID     int64  `json:"user_id"`
}

type itemRecord struct {
	ItemID     int64  `json:"item_id"`
	ItemName   string `json:"item_name"`
	ItemStatus string `json:"item_status"`
}

func (r itemRecord) toModel() (models.ListItem, error) {
	item := models.ListItem{ID: r.ItemID, Text: r.ItemName, Status: models.Status(r.ItemStatus)}
	if !item.HasID() {
		return models.ListItem{}, fmt.Errorf("%w: item without item_id", ErrBadResponse)
	}
	if !item.Status.Valid() {
		return models.ListItem{}, fmt.Errorf("%w: unknown item_status %q", ErrBadResponse, r.ItemStatus)
	}
	return item, nil
}
