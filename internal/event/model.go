// internal/event/model.go
//
// Event and category records.
//
// Context
// -------
// Events are the chef's public calendar: dinners, classes, pop-ups.  Each
// event may belong to one category; categories carry a URL slug and an
// optional accent colour for the calendar view.
//
//	event_categories (id PK, name, slug UNIQUE, description?, color?)
//	events           (id PK, ..., latitude?, longitude?, category_id? → event_categories.id)
//
// Coordinates live in two nullable columns but travel as one optional
// value; the table CHECK and the Patch type both keep them paired.
package event

import (
	"database/sql"
	"strings"
	"time"

	"github.com/yanizio/chefsite/internal/database"
)

// Coordinates is a map pin for an event location.
type Coordinates struct {
	Lat float64 `json:"lat" yaml:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" yaml:"lng" validate:"gte=-180,lte=180"`
}

// Event mirrors one row in `events`.
type Event struct {
	ID            string           `db:"id"             json:"id"`
	Title         string           `db:"title"          json:"title"          validate:"required,max=255"`
	Description   string           `db:"description"    json:"description"`
	Date          database.Date    `db:"date"           json:"date"`
	Time          *string          `db:"time"           json:"time,omitempty"     validate:"omitempty,max=32"`
	Location      *string          `db:"location"       json:"location,omitempty" validate:"omitempty,max=255"`
	Coordinates   *Coordinates     `db:"-"              json:"coordinates,omitempty"`
	FeaturedImage string           `db:"featured_image" json:"featured_image" validate:"max=1024"`
	GalleryImages database.Strings `db:"gallery_images" json:"gallery_images"`
	CategoryID    *string          `db:"category_id"    json:"category_id,omitempty"`
	CreatedAt     time.Time        `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time        `db:"updated_at"     json:"updated_at"`
}

func (e *Event) check() error {
	if err := database.Validate(e); err != nil {
		return err
	}
	if e.Date.IsZero() {
		return database.Invalid("event date is required")
	}
	return nil
}

// row adds the coordinate columns the Event struct does not map.
type row struct {
	Event
	Latitude  sql.NullFloat64 `db:"latitude"`
	Longitude sql.NullFloat64 `db:"longitude"`
}

func (r row) event() *Event {
	e := r.Event
	if r.Latitude.Valid && r.Longitude.Valid {
		e.Coordinates = &Coordinates{Lat: r.Latitude.Float64, Lng: r.Longitude.Float64}
	}
	if e.GalleryImages == nil {
		e.GalleryImages = database.Strings{}
	}
	return &e
}

func coordArgs(c *Coordinates) (lat, lng any) {
	if c == nil {
		return nil, nil
	}
	return c.Lat, c.Lng
}

// Patch is a partial event update.  Absent fields are left untouched;
// nullable fields accept an explicit null.
type Patch struct {
	Title         database.Field[string]           `json:"title"`
	Description   database.Field[string]           `json:"description"`
	Date          database.Field[database.Date]    `json:"date"`
	Time          database.Field[*string]          `json:"time"`
	Location      database.Field[*string]          `json:"location"`
	Coordinates   database.Field[*Coordinates]     `json:"coordinates"`
	FeaturedImage database.Field[string]           `json:"featured_image"`
	GalleryImages database.Field[database.Strings] `json:"gallery_images"`
	CategoryID    database.Field[*string]          `json:"category_id"`
}

func (p Patch) check() error {
	if p.Title.Set && strings.TrimSpace(p.Title.Value) == "" {
		return database.Invalid("event title cannot be blank")
	}
	if p.Date.Set && p.Date.Value.IsZero() {
		return database.Invalid("event date cannot be cleared")
	}
	if p.Coordinates.Set && p.Coordinates.Value != nil {
		if err := database.Validate(p.Coordinates.Value); err != nil {
			return err
		}
	}
	return nil
}

// Category mirrors one row in `event_categories`.
type Category struct {
	ID          string    `db:"id"          json:"id"`
	Name        string    `db:"name"        json:"name"  validate:"required,max=128"`
	Slug        string    `db:"slug"        json:"slug"  validate:"omitempty,max=128"`
	Description *string   `db:"description" json:"description,omitempty"`
	Color       *string   `db:"color"       json:"color,omitempty" validate:"omitempty,hexcolor"`
	CreatedAt   time.Time `db:"created_at"  json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"  json:"updated_at"`
}

// CategoryPatch is a partial category update.  Setting Name without Slug
// re-derives the slug.
type CategoryPatch struct {
	Name        database.Field[string]  `json:"name"`
	Slug        database.Field[string]  `json:"slug"`
	Description database.Field[*string] `json:"description"`
	Color       database.Field[*string] `json:"color"`
}
