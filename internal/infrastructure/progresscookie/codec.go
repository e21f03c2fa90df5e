package progresscookie

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/bytebufferpool"

	"github.com/granada-os/personalization/internal/domain/onboarding"
)

const (
	DefaultName = "granada_onboarding_progress"
	// MaxSize is the browser limit for one cookie, name included.
	MaxSize = 4096
)

type Config struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Codec moves onboarding progress in and out of a browser cookie as escaped JSON.
type Codec struct {
	name   string
	maxAge time.Duration
	secure bool
}

func NewCodec(cfg Config) *Codec {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = DefaultName
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = onboarding.ProgressMaxAge
	}
	return &Codec{name: name, maxAge: maxAge, secure: cfg.Secure}
}

func (c *Codec) Name() string { return c.name }

func (c *Codec) MaxAge() time.Duration { return c.maxAge }

// Encode builds the cookie for p. It fails with onboarding.ErrProgressTooLarge above MaxSize.
func (c *Codec) Encode(p onboarding.Progress) (*http.Cookie, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(p); err != nil {
		return nil, fmt.Errorf("encode onboarding progress: %w", err)
	}
	value := url.PathEscape(strings.TrimSpace(buf.String()))
	if size := len(c.name) + 1 + len(value); size > MaxSize {
		return nil, fmt.Errorf("%w: %d bytes", onboarding.ErrProgressTooLarge, size)
	}

	return &http.Cookie{
		Name:     c.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.maxAge / time.Second),
		Expires:  p.SavedAt().Add(c.maxAge).UTC(),
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// Decode parses a cookie value and rejects snapshots at least MaxAge old.
func (c *Codec) Decode(value string, now time.Time) (onboarding.Progress, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return onboarding.Progress{}, fmt.Errorf("empty onboarding progress cookie")
	}
	raw, err := url.PathUnescape(value)
	if err != nil {
		return onboarding.Progress{}, fmt.Errorf("unescape onboarding progress cookie: %w", err)
	}

	var p onboarding.Progress
	if err := sonic.UnmarshalString(raw, &p); err != nil {
		return onboarding.Progress{}, fmt.Errorf("decode onboarding progress cookie: %w", err)
	}
	if p.Timestamp <= 0 {
		return onboarding.Progress{}, fmt.Errorf("onboarding progress cookie has no timestamp")
	}
	if p.Expired(now, c.maxAge) {
		return onboarding.Progress{}, onboarding.ErrProgressExpired
	}
	return p, nil
}

// Read returns the raw cookie value, or empty when the request has none.
func (c *Codec) Read(r *http.Request) string {
	cookie, err := r.Cookie(c.name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Expired is the cookie that makes the browser drop stored progress.
func (c *Codec) Expired() *http.Cookie {
	return &http.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
