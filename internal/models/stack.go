package models

import "time"

// CreateStack is the body of POST /api/stacks. The first id becomes the
// primary asset of the stack.
type CreateStack struct {
	AssetIDs []string `json:"assetIds"`
}

// UpdateAsset is the body of PUT /api/assets/{id}. Nil fields are left
// untouched by the server.
type UpdateAsset struct {
	DateTimeOriginal *time.Time `json:"dateTimeOriginal,omitempty"`
	Latitude         *float64   `json:"latitude,omitempty"`
	Longitude        *float64   `json:"longitude,omitempty"`
}

