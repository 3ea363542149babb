package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/king44444/walking-step-tracker-app-sub000/models"
)

// OutboundSender delivers a single SMS and returns the provider message id.
type OutboundSender interface {
	Send(to, body string) (sid string, httpCode int, err error)
}

// TwilioSender posts to the Twilio Messages endpoint with basic auth.
type TwilioSender struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	BaseURL    string // overridable for tests; empty means api.twilio.com
	Client     *http.Client
}

// NewTwilioSender builds a sender with a bounded HTTP client.
func NewTwilioSender(accountSID, authToken, fromNumber string) *TwilioSender {
	return &TwilioSender{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		Client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Send delivers one message. A non-2xx reply surfaces as an error alongside
// the status code so callers can audit both.
func (t *TwilioSender) Send(to, body string) (string, int, error) {
	if t.AccountSID == "" || t.AuthToken == "" || t.FromNumber == "" {
		return "", 0, fmt.Errorf("twilio sender not configured")
	}
	base := t.BaseURL
	if base == "" {
		base = "https://api.twilio.com"
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", base, t.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", t.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(t.AccountSID, t.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.Client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var parsed struct {
		Sid string `json:"sid"`
	}
	_ = json.Unmarshal(raw, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parsed.Sid, resp.StatusCode, fmt.Errorf("twilio send failed: status %d", resp.StatusCode)
	}
	return parsed.Sid, resp.StatusCode, nil
}

// Notifier sends messages to users, honoring the opt-out flag and recording
// every attempt in the outbound audit table.
type Notifier struct {
	DB     *gorm.DB
	Writer *models.Writer
	Sender OutboundSender
}

// NotifyUser sends body to the user's recorded number unless they have opted
// out. A skipped or failed send is not an error to the caller's flow; the
// outcome lives in the audit row and the returned error is informational.
func (n *Notifier) NotifyUser(user *models.User, body string) error {
	if user.PhoneE164 == "" {
		return fmt.Errorf("user %d has no phone number", user.ID)
	}
	if user.PhoneOptedOut {
		Sugar.Infow("outbound skipped, user opted out", "user", user.Name)
		return nil
	}
	return n.NotifyNumber(user.PhoneE164, body)
}

// NotifyNumber sends body to a raw E.164 number and audits the attempt.
func (n *Notifier) NotifyNumber(to, body string) error {
	sid, code, err := n.Sender.Send(to, body)

	rec := models.SmsOutboundAudit{ToNumber: to, Body: body}
	if code != 0 {
		c := code
		rec.HTTPCode = &c
	}
	if sid != "" {
		s := sid
		rec.Sid = &s
	}
	if err != nil {
		msg := err.Error()
		rec.Error = &msg
	}
	if auditErr := models.InsertOutboundAudit(n.Writer, &rec); auditErr != nil {
		Sugar.Errorw("outbound audit insert failed", "error", auditErr)
	}
	return err
}
