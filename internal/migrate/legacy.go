package migrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanizio/chefsite/internal/blog"
	"github.com/yanizio/chefsite/internal/database"
	"github.com/yanizio/chefsite/internal/event"
	"github.com/yanizio/chefsite/internal/recipe"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/user"
)

// The admin screens wrote records with camelCase keys and whatever types
// the form widgets produced: numbers as strings, ids as numbers, dates as
// ISO strings or epoch milliseconds.  The types below accept all of that.

// text accepts a JSON string, number, or bool.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = text(strings.TrimSpace(s))
		return nil
	}
	*t = text(b)
	return nil
}

func (t text) ptr() *string {
	if t == "" {
		return nil
	}
	s := string(t)
	return &s
}

// count accepts a number or a numeric string; blank is zero.
type count int

func (c *count) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	if t == "" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(t), 64)
	if err != nil {
		return fmt.Errorf("not a number: %q", string(t))
	}
	*c = count(f)
	return nil
}

// flag accepts a bool, "true"/"false"/"on"/"yes", or 0/1.
type flag bool

func (f *flag) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	switch strings.ToLower(string(t)) {
	case "", "false", "0", "off", "no":
		*f = false
	case "true", "1", "on", "yes":
		*f = true
	default:
		return fmt.Errorf("not a boolean: %q", string(t))
	}
	return nil
}

// amount is count for money: fractional values survive.
type amount struct {
	v   float64
	set bool
}

func (a *amount) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	t = text(strings.TrimPrefix(string(t), "$"))
	if t == "" {
		*a = amount{}
		return nil
	}
	f, err := strconv.ParseFloat(string(t), 64)
	if err != nil {
		return fmt.Errorf("not an amount: %q", string(t))
	}
	*a = amount{v: f, set: true}
	return nil
}

func (a amount) ptr() *float64 {
	if !a.set || a.v <= 0 {
		return nil
	}
	v := a.v
	return &v
}

var stampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	database.DateLayout,
	"1/2/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// stamp accepts the layouts above or epoch milliseconds.
type stamp struct{ time.Time }

func (s *stamp) UnmarshalJSON(b []byte) error {
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	if t == "" {
		*s = stamp{}
		return nil
	}
	if ms, err := strconv.ParseInt(string(t), 10, 64); err == nil {
		*s = stamp{time.UnixMilli(ms).UTC()}
		return nil
	}
	for _, l := range stampLayouts {
		if v, err := time.Parse(l, string(t)); err == nil {
			*s = stamp{v.UTC()}
			return nil
		}
	}
	return fmt.Errorf("unrecognised date %q", string(t))
}

func (s stamp) ptr() *time.Time {
	if s.IsZero() {
		return nil
	}
	v := s.Time
	return &v
}

// list accepts a JSON array or a comma- or newline-separated string.
type list []string

func (l *list) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var raw []text
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		out := make(list, 0, len(raw))
		for _, v := range raw {
			if v != "" {
				out = append(out, string(v))
			}
		}
		*l = out
		return nil
	}
	var t text
	if err := t.UnmarshalJSON(b); err != nil {
		return err
	}
	out := list{}
	for _, part := range strings.FieldsFunc(string(t), func(r rune) bool { return r == ',' || r == '\n' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

func (l list) strings() database.Strings {
	if l == nil {
		return database.Strings{}
	}
	return database.Strings(l)
}

func first(vals ...text) text {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

/*──────────────────────────────── ids ─────────────────────────────────────*/

var legacyNS = uuid.NewSHA1(uuid.NameSpaceURL, []byte("chefsite:localstorage"))

// stableID maps a legacy id to a UUID.  UUIDs pass through; anything else
// hashes to the same UUID on every run, which keeps replays idempotent.
func stableID(collection string, legacy ...string) string {
	if len(legacy) == 1 {
		if id, err := uuid.Parse(legacy[0]); err == nil {
			return id.String()
		}
	}
	return uuid.NewSHA1(legacyNS, []byte(collection+":"+strings.Join(legacy, "|"))).String()
}

/*────────────────────────────── records ───────────────────────────────────*/

type legacyEvent struct {
	ID            text          `json:"id"`
	Title         text          `json:"title"`
	Description   text          `json:"description"`
	Date          stamp         `json:"date"`
	Time          text          `json:"time"`
	Location      text          `json:"location"`
	Coordinates   *legacyCoords `json:"coordinates"`
	Image         text          `json:"image"`
	FeaturedImage text          `json:"featuredImage"`
	GalleryImages list          `json:"galleryImages"`
	CategoryID    text          `json:"categoryId"`
}

type legacyCoords struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (l legacyEvent) event() event.Event {
	e := event.Event{
		Title:         string(l.Title),
		Description:   string(l.Description),
		Date:          database.NewDate(l.Date.Time),
		Time:          l.Time.ptr(),
		Location:      l.Location.ptr(),
		FeaturedImage: string(first(l.FeaturedImage, l.Image)),
		GalleryImages: l.GalleryImages.strings(),
	}
	if l.Date.IsZero() {
		e.Date = database.Date{}
	}
	if l.ID != "" {
		e.ID = stableID("events", string(l.ID))
	} else {
		e.ID = stableID("events", e.Title, e.Date.String())
	}
	if c := l.Coordinates; c != nil && c.Lat != nil && c.Lng != nil {
		e.Coordinates = &event.Coordinates{Lat: *c.Lat, Lng: *c.Lng}
	}
	// Categories never lived in local storage; only ids that already point
	// at a stored category are carried over.
	if id, err := uuid.Parse(string(l.CategoryID)); err == nil {
		s := id.String()
		e.CategoryID = &s
	}
	return e
}

type legacyUser struct {
	FullName               text  `json:"fullName"`
	Name                   text  `json:"name"`
	Email                  text  `json:"email"`
	Address                text  `json:"address"`
	SubscribeNewsletter    flag  `json:"subscribeNewsletter"`
	SignupDate             stamp `json:"signupDate"`
	LastContactedDate      stamp `json:"lastContactedDate"`
	LastContactedEventID   text  `json:"lastContactedEventId"`
	LastContactedEventName text  `json:"lastContactedEventName"`
}

func (l legacyUser) user() user.User {
	u := user.User{
		FullName:               string(first(l.FullName, l.Name)),
		Email:                  string(l.Email),
		Address:                l.Address.ptr(),
		SubscribeNewsletter:    bool(l.SubscribeNewsletter),
		SignupDate:             l.SignupDate.Time,
		LastContactedDate:      l.LastContactedDate.ptr(),
		LastContactedEventName: l.LastContactedEventName.ptr(),
	}
	if l.LastContactedEventID != "" {
		id := stableID("events", string(l.LastContactedEventID))
		u.LastContactedEventID = &id
	}
	return u
}

type legacySubmission struct {
	ID                 text   `json:"id"`
	Type               text   `json:"type"`
	Timestamp          stamp  `json:"timestamp"`
	Name               text   `json:"name"`
	Email              text   `json:"email"`
	Message            text   `json:"message"`
	ContactType        text   `json:"contactType"`
	EventDate          text   `json:"eventDate"`
	Guests             *count `json:"guests"`
	ServiceType        text   `json:"serviceType"`
	Amount             text   `json:"amount"`
	CustomAmount       amount `json:"customAmount"`
	RecipientName      text   `json:"recipientName"`
	RecipientEmail     text   `json:"recipientEmail"`
	PaymentAppUsername text   `json:"paymentAppUsername"`
	IsProcessed        flag   `json:"isProcessed"`
}

func (l legacySubmission) submission() submission.Submission {
	s := submission.Submission{
		Type:      submission.Type(l.Type),
		Timestamp: l.Timestamp.Time,
		Name:      string(l.Name),
		Email:     string(l.Email),
		Message:   l.Message.ptr(),
	}
	if l.ID != "" {
		s.ID = stableID("formSubmissions", string(l.ID))
	} else {
		s.ID = stableID("formSubmissions", string(l.Type), s.Email, s.Timestamp.Format(time.RFC3339Nano))
	}
	switch s.Type {
	case submission.TypeContact:
		c := &submission.ContactDetails{
			ContactType: l.ContactType.ptr(),
			EventDate:   l.EventDate.ptr(),
			ServiceType: l.ServiceType.ptr(),
		}
		if l.Guests != nil {
			g := int(*l.Guests)
			c.Guests = &g
		}
		s.Contact = c
	case submission.TypeGift:
		s.Gift = &submission.GiftDetails{
			Amount:             l.Amount.ptr(),
			CustomAmount:       l.CustomAmount.ptr(),
			RecipientName:      l.RecipientName.ptr(),
			RecipientEmail:     l.RecipientEmail.ptr(),
			PaymentAppUsername: l.PaymentAppUsername.ptr(),
			IsProcessed:        bool(l.IsProcessed),
		}
	}
	return s
}

type legacyRecipe struct {
	Title         text  `json:"title"`
	Slug          text  `json:"slug"`
	Image         text  `json:"image"`
	FeaturedImage text  `json:"featuredImage"`
	Description   text  `json:"description"`
	Ingredients   list  `json:"ingredients"`
	Instructions  list  `json:"instructions"`
	PrepTime      text  `json:"prepTime"`
	CookTime      text  `json:"cookTime"`
	Servings      count `json:"servings"`
	Cuisine       text  `json:"cuisine"`
	Difficulty    text  `json:"difficulty"`
	Tags          list  `json:"tags"`
	PublishedDate stamp `json:"publishedDate"`
	Featured      flag  `json:"featured"`
}

func (l legacyRecipe) recipe() recipe.Recipe {
	return recipe.Recipe{
		Title:         string(l.Title),
		Slug:          string(l.Slug),
		FeaturedImage: string(first(l.FeaturedImage, l.Image)),
		Description:   string(l.Description),
		Ingredients:   l.Ingredients.strings(),
		Instructions:  l.Instructions.strings(),
		PrepTime:      string(l.PrepTime),
		CookTime:      string(l.CookTime),
		Servings:      int(l.Servings),
		Cuisine:       string(l.Cuisine),
		Difficulty:    recipe.Difficulty(strings.ToLower(string(l.Difficulty))),
		Tags:          l.Tags.strings(),
		PublishedDate: l.PublishedDate.Time,
		Featured:      bool(l.Featured),
	}
}

type legacyPost struct {
	Title         text  `json:"title"`
	Slug          text  `json:"slug"`
	Image         text  `json:"image"`
	FeaturedImage text  `json:"featuredImage"`
	Excerpt       text  `json:"excerpt"`
	Content       text  `json:"content"`
	PublishedDate stamp `json:"publishedDate"`
	Tags          list  `json:"tags"`
	Category      text  `json:"category"`
	Featured      flag  `json:"featured"`
}

func (l legacyPost) post() blog.Post {
	return blog.Post{
		Title:         string(l.Title),
		Slug:          string(l.Slug),
		FeaturedImage: string(first(l.FeaturedImage, l.Image)),
		Excerpt:       l.Excerpt.ptr(),
		Content:       string(l.Content),
		PublishedDate: l.PublishedDate.Time,
		Tags:          l.Tags.strings(),
		Category:      l.Category.ptr(),
		Featured:      bool(l.Featured),
	}
}
