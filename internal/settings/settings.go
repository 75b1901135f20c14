// internal/settings/settings.go
//
// Site-wide editable content and presentation settings.
//
// Context
// -------
// Everything the admin "Site Settings" screens edit lives in one nested
// object persisted as a single JSON blob.  Blobs written by older builds
// lack keys added since, so a blob is never used on its own: Merge
// overlays it on a complete base (normally Default()), and only keys the
// blob actually contains replace base values.  Nested objects merge field
// by field; lists replace wholesale.  A key with the wrong type is skipped
// on its own.
//
// JSON keys stay camelCase because that is the format already persisted
// in browsers and in the site_settings row.
//
// Workflow
// --------
//  1. Default()          – the compiled-in complete object.
//  2. Merge(base, blob)  – overlay persisted or partial JSON.
//  3. Store.Get / Save   – see store.go.
package settings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/database"
)

// Settings is the full settings object.
type Settings struct {
	Title                string               `json:"title"`
	Tagline              string               `json:"tagline"`
	HeroImage            string               `json:"heroImage"`
	AboutTitle           string               `json:"aboutTitle"`
	AboutText            string               `json:"aboutText"`
	AboutImage           string               `json:"aboutImage"`
	ContactEmail         string               `json:"contactEmail"`
	ContactPhone         string               `json:"contactPhone"`
	ContactLocation      string               `json:"contactLocation"`
	AvailableServices    []string             `json:"availableServices"`
	Services             Services             `json:"services"`
	GiftCertificates     GiftCertificates     `json:"giftCertificates"`
	Instagram            Instagram            `json:"instagram"`
	FooterText           string               `json:"footerText"`
	SocialMedia          SocialMedia          `json:"socialMedia"`
	MessageNotifications MessageNotifications `json:"messageNotifications"`
	Theme                Theme                `json:"theme"`
}

// Services holds the blurb shown for each of the four service cards.
type Services struct {
	PrivateDinners string `json:"privateDinners"`
	CookingClasses string `json:"cookingClasses"`
	MealPrep       string `json:"mealPrep"`
	Catering       string `json:"catering"`
}

// GiftCertificates configures the gift-certificate form.
type GiftCertificates struct {
	Enabled            bool     `json:"enabled"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Image              string   `json:"image"`
	Amounts            []string `json:"amounts"`
	AllowCustomAmount  bool     `json:"allowCustomAmount"`
	MinimumAmount      float64  `json:"minimumAmount"`
	PaymentApp         string   `json:"paymentApp"`
	PaymentAppUsername string   `json:"paymentAppUsername"`
}

// Instagram configures the feed strip on the home page.
type Instagram struct {
	Enabled     bool   `json:"enabled"`
	Username    string `json:"username"`
	AccessToken string `json:"accessToken"`
	PostCount   int    `json:"postCount"`
}

// SocialMedia holds profile URLs for the footer.
type SocialMedia struct {
	Instagram string `json:"instagram"`
	Facebook  string `json:"facebook"`
	Twitter   string `json:"twitter"`
	LinkedIn  string `json:"linkedin"`
	YouTube   string `json:"youtube"`
}

// MessageNotifications tells the mailer whether and where to forward form
// submissions.
type MessageNotifications struct {
	Enabled        bool     `json:"enabled"`
	EmailAddresses []string `json:"emailAddresses"`
}

// Theme is the presentation sub-object.  Enum-like fields fall back to a
// documented value in ThemeVariables when unknown.
type Theme struct {
	Preset       string      `json:"preset"`
	Colors       ThemeColors `json:"colors"`
	Fonts        ThemeFonts  `json:"fonts"`
	BorderRadius string      `json:"borderRadius"`
	Spacing      string      `json:"spacing"`
	ContentWidth string      `json:"contentWidth"`
	ButtonStyle  string      `json:"buttonStyle"`
}

// ThemeColors is the palette, as CSS colour strings.
type ThemeColors struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
	Muted      string `json:"muted"`
}

// ThemeFonts names the heading and body font choices.
type ThemeFonts struct {
	Heading string `json:"heading"`
	Body    string `json:"body"`
}

// Default returns the compiled-in settings.  Every call returns a fresh
// copy.
func Default() Settings {
	return Settings{
		Title:             "Chef's Table",
		Tagline:           "Seasonal private dining, cooked in your kitchen",
		HeroImage:         "/images/hero.jpg",
		AboutTitle:        "About the Chef",
		AboutText:         "Classically trained, obsessed with local produce, and happiest cooking for a table of friends.",
		AboutImage:        "/images/about.jpg",
		ContactEmail:      "hello@example.com",
		ContactPhone:      "",
		ContactLocation:   "",
		AvailableServices: []string{"Private Dinners", "Cooking Classes", "Meal Prep", "Catering"},
		Services: Services{
			PrivateDinners: "A multi-course menu designed around your guests and cooked in your home.",
			CookingClasses: "Hands-on classes for small groups, from knife skills to fresh pasta.",
			MealPrep:       "A week of balanced, seasonal meals delivered ready to heat.",
			Catering:       "Family-style or passed plates for gatherings of up to fifty.",
		},
		GiftCertificates: GiftCertificates{
			Enabled:           true,
			Title:             "Give the Gift of a Great Meal",
			Description:       "Certificates can be used toward any dinner, class, or meal-prep package.",
			Image:             "/images/gift.jpg",
			Amounts:           []string{"100", "250", "500"},
			AllowCustomAmount: true,
			MinimumAmount:     50,
			PaymentApp:        "venmo",
		},
		Instagram: Instagram{
			Enabled:   false,
			PostCount: 6,
		},
		FooterText:  "© Chef's Table. All rights reserved.",
		SocialMedia: SocialMedia{},
		MessageNotifications: MessageNotifications{
			Enabled:        false,
			EmailAddresses: []string{},
		},
		Theme: Presets["classic"],
	}
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.AvailableServices = slices.Clone(s.AvailableServices)
	out.GiftCertificates.Amounts = slices.Clone(s.GiftCertificates.Amounts)
	out.MessageNotifications.EmailAddresses = slices.Clone(s.MessageNotifications.EmailAddresses)
	out.normalise()
	return out
}

// normalise replaces nil lists with empty ones so callers and the JSON
// output never see null.
func (s *Settings) normalise() {
	if s.AvailableServices == nil {
		s.AvailableServices = []string{}
	}
	if s.GiftCertificates.Amounts == nil {
		s.GiftCertificates.Amounts = []string{}
	}
	if s.MessageNotifications.EmailAddresses == nil {
		s.MessageNotifications.EmailAddresses = []string{}
	}
}

// Merge overlays blob on a copy of base.  Keys absent from blob keep
// base's value; an empty blob returns base unchanged.  A blob that is not
// a JSON object fails with database.ErrInvalid and returns base.
//
// Keys are applied one at a time, descending into nested objects, so a
// key whose value has the wrong JSON type (legacy browser data such as
// numeric gift amounts) keeps base's value without costing its siblings.
// Such keys are logged and reported as a *SkippedKeysError alongside the
// merged value, which is still usable.
func Merge(base Settings, blob []byte) (Settings, error) {
	out := base.Clone()
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}
	if trimmed[0] != '{' {
		return base.Clone(), fmt.Errorf("%w: settings must be a JSON object", database.ErrInvalid)
	}
	var skipped []string
	if err := overlay(reflect.ValueOf(&out).Elem(), trimmed, "", &skipped); err != nil {
		return base.Clone(), fmt.Errorf("%w: settings: %v", database.ErrInvalid, err)
	}
	out.normalise()
	if len(skipped) > 0 {
		return out, &SkippedKeysError{Keys: skipped}
	}
	return out, nil
}

// SkippedKeysError lists the dotted paths Merge left at their base value
// because the blob held the wrong JSON type for them.
type SkippedKeysError struct {
	Keys []string
}

func (e *SkippedKeysError) Error() string {
	return fmt.Sprintf("%s: settings keys with the wrong type: %s", database.ErrInvalid, strings.Join(e.Keys, ", "))
}

func (e *SkippedKeysError) Unwrap() error { return database.ErrInvalid }

// overlay decodes raw into the struct dst field by field.  Only a raw
// value that is not an object at all is an error; per-field type
// mismatches are appended to skipped.
func overlay(dst reflect.Value, raw []byte, prefix string, skipped *[]string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}
	t := dst.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		val, ok := fields[name]
		if !ok || name == "" || name == "-" {
			continue
		}
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		v := bytes.TrimSpace(val)
		if f.Type.Kind() == reflect.Struct && len(v) > 0 && v[0] == '{' {
			if err := overlay(dst.Field(i), v, path, skipped); err != nil {
				*skipped = append(*skipped, path)
			}
			continue
		}

		// Decode into a copy so a failed key leaves the field untouched;
		// null keeps scalars and clears lists, as encoding/json does.
		tmp := reflect.New(f.Type)
		tmp.Elem().Set(dst.Field(i))
		if err := json.Unmarshal(v, tmp.Interface()); err != nil {
			zap.L().Warn("settings key ignored", zap.String("key", path), zap.Error(err))
			*skipped = append(*skipped, path)
			continue
		}
		dst.Field(i).Set(tmp.Elem())
	}
	return nil
}

// Marshal encodes s for persistence.
func Marshal(s Settings) ([]byte, error) {
	s = s.Clone()
	return json.Marshal(s)
}

var validate = validator.New()

// NotificationRecipients returns the addresses the mailer should copy on
// new form submissions: none when notifications are off, otherwise the
// configured addresses lower-cased, de-duplicated, and filtered to valid
// emails.
func NotificationRecipients(s Settings) []string {
	if !s.MessageNotifications.Enabled {
		return nil
	}
	seen := make(map[string]bool, len(s.MessageNotifications.EmailAddresses))
	out := make([]string, 0, len(s.MessageNotifications.EmailAddresses))
	for _, a := range s.MessageNotifications.EmailAddresses {
		a = strings.ToLower(strings.TrimSpace(a))
		if a == "" || seen[a] || validate.Var(a, "email") != nil {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	return out
}
