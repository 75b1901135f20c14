package api

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/chefsite/internal/settings"
	"github.com/yanizio/chefsite/internal/submission"
	"github.com/yanizio/chefsite/internal/user"
)

type contactRequest struct {
	Name        string `json:"name"         validate:"required,max=255"`
	Email       string `json:"email"        validate:"required,email,max=255"`
	Message     string `json:"message"      validate:"max=5000"`
	ContactType string `json:"contact_type" validate:"max=64"`
	EventDate   string `json:"event_date"   validate:"max=32"`
	Guests      *int   `json:"guests"       validate:"omitempty,gte=1,lte=500"`
	ServiceType string `json:"service_type" validate:"max=128"`
	Subscribe   bool   `json:"subscribe_newsletter"`
}

type giftRequest struct {
	Name               string   `json:"name"                 validate:"required,max=255"`
	Email              string   `json:"email"                validate:"required,email,max=255"`
	Message            string   `json:"message"              validate:"max=5000"`
	Amount             string   `json:"amount"               validate:"required_without=CustomAmount,max=32"`
	CustomAmount       *float64 `json:"custom_amount"        validate:"omitempty,gt=0"`
	RecipientName      string   `json:"recipient_name"       validate:"required,max=255"`
	RecipientEmail     string   `json:"recipient_email"      validate:"omitempty,email,max=255"`
	PaymentAppUsername string   `json:"payment_app_username" validate:"max=255"`
}

type newsletterRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email"     validate:"required,email,max=255"`
	Address  string `json:"address"   validate:"max=500"`
}

// opt returns nil for blank strings.
func opt(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (h *Handler) submitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decodeValid(w, r, &req) {
		return
	}
	s, err := h.Submissions.Create(r.Context(), submission.Submission{
		Type:    submission.TypeContact,
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Message: opt(req.Message),
		Contact: &submission.ContactDetails{
			ContactType: opt(req.ContactType),
			EventDate:   opt(req.EventDate),
			Guests:      req.Guests,
			ServiceType: opt(req.ServiceType),
		},
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	if req.Subscribe {
		h.signUp(r, req.Name, req.Email, "")
	}
	h.announce(r, s)
	writeJSON(w, http.StatusCreated, s)
}

// checkGift applies the gift-certificate settings to req.
func checkGift(gc settings.GiftCertificates, req giftRequest) string {
	if !gc.Enabled {
		return "gift certificates are not available"
	}
	if req.CustomAmount != nil {
		if !gc.AllowCustomAmount {
			return "custom amounts are not accepted"
		}
		if *req.CustomAmount < gc.MinimumAmount {
			return "custom amount is below the minimum of " + strconv.FormatFloat(gc.MinimumAmount, 'f', -1, 64)
		}
		return ""
	}
	amount := strings.TrimPrefix(strings.TrimSpace(req.Amount), "$")
	if len(gc.Amounts) > 0 && !slices.Contains(gc.Amounts, amount) {
		return "amount must be one of " + strings.Join(gc.Amounts, ", ")
	}
	return ""
}

func (h *Handler) submitGift(w http.ResponseWriter, r *http.Request) {
	var req giftRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if msg := checkGift(h.Settings.Get(r.Context()).GiftCertificates, req); msg != "" {
		writeError(w, r, http.StatusUnprocessableEntity, "GIFT_REJECTED", msg)
		return
	}

	g := &submission.GiftDetails{
		CustomAmount:       req.CustomAmount,
		RecipientName:      opt(req.RecipientName),
		RecipientEmail:     opt(req.RecipientEmail),
		PaymentAppUsername: opt(req.PaymentAppUsername),
	}
	if req.CustomAmount == nil {
		g.Amount = opt(strings.TrimPrefix(strings.TrimSpace(req.Amount), "$"))
	}
	s, err := h.Submissions.Create(r.Context(), submission.Submission{
		Type:    submission.TypeGift,
		Name:    strings.TrimSpace(req.Name),
		Email:   req.Email,
		Message: opt(req.Message),
		Gift:    g,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	h.announce(r, s)
	writeJSON(w, http.StatusCreated, s)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if !decodeValid(w, r, &req) {
		return
	}
	u, err := h.Users.Save(r.Context(), user.User{
		FullName:            strings.TrimSpace(req.FullName),
		Email:               req.Email,
		Address:             opt(req.Address),
		SubscribeNewsletter: true,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// signUp adds the sender of a contact form to the newsletter.  A failure
// is logged; the submission itself already succeeded.
func (h *Handler) signUp(r *http.Request, name, email, address string) {
	_, err := h.Users.Save(r.Context(), user.User{
		FullName:            strings.TrimSpace(name),
		Email:               email,
		Address:             opt(address),
		SubscribeNewsletter: true,
	})
	if err != nil {
		zap.L().Warn("newsletter sign-up from contact form failed", zap.Error(err))
	}
}

// announce logs who the mailer should copy on s.
func (h *Handler) announce(r *http.Request, s *submission.Submission) {
	to := settings.NotificationRecipients(h.Settings.Get(r.Context()))
	if len(to) == 0 {
		return
	}
	zap.L().Info("submission received",
		zap.String("id", s.ID),
		zap.String("type", string(s.Type)),
		zap.Strings("notify", to))
}
