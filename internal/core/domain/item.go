package domain

import "time"

// Item is an asset-API item as returned by the geospatial search endpoint.
type Item struct {
	ID           string         `json:"_id"`
	Name         string         `json:"name"`
	BaseParentID string         `json:"baseParentId"`
	FolderID     string         `json:"folderId,omitempty"`
	Meta         map[string]any `json:"meta,omitempty"`
	Geo          *ItemGeo       `json:"geo,omitempty"`
	Thumbnails   []string       `json:"_thumbnails,omitempty"`
	Created      *time.Time     `json:"created,omitempty"`
}

// ItemGeo holds the geospatial plugin's geometry for an item.
type ItemGeo struct {
	Geometry *Geometry `json:"geometry,omitempty"`
}

// HasGeometry reports whether the item carries a usable geometry.
func (i *Item) HasGeometry() bool {
	return i.Geo != nil && i.Geo.Geometry != nil
}

// HasThumbnail reports whether a thumbnail file is already attached.
func (i *Item) HasThumbnail() bool {
	return len(i.Thumbnails) > 0
}

// File is a file attached to an item.
type File struct {
	ID     string   `json:"_id"`
	Name   string   `json:"name"`
	ItemID string   `json:"itemId"`
	Exts   []string `json:"exts"`
	Size   int64    `json:"size"`
	Mime   string   `json:"mimeType,omitempty"`
}

// Collection is a top-level asset-API collection (an item's baseParentId).
type Collection struct {
	ID          string `json:"_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ThumbnailJob is the job record returned when a thumbnail is requested.
type ThumbnailJob struct {
	ID     string `json:"_id"`
	Title  string `json:"title,omitempty"`
	Status int    `json:"status"`
}
