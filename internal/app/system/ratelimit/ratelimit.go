// Package ratelimit throttles credential guessing and verification-code
// abuse with fixed windows per key. Limits are in-memory and per-process.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter counts events per key within a rolling window. Safe for
// concurrent use.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	limit    int
	duration time.Duration
	lastGC   time.Time
}

type bucket struct {
	count     int
	expiresAt time.Time
}

// New creates a limiter allowing limit events per duration per key.
func New(limit int, duration time.Duration) *Limiter {
	return &Limiter{
		buckets:  make(map[string]*bucket),
		limit:    limit,
		duration: duration,
		lastGC:   time.Now(),
	}
}

// Allow records an event for key and reports whether it fits the window.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.maybePrune(now)

	b, ok := l.buckets[key]
	if !ok || now.After(b.expiresAt) {
		l.buckets[key] = &bucket{count: 1, expiresAt: now.Add(l.duration)}
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	return true
}

// Reset clears the window for key. Called after a successful attempt so a
// legitimate user is not penalized for earlier typos.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// maybePrune drops expired buckets. Runs at most once per window so Allow
// stays cheap under load. Caller holds l.mu.
func (l *Limiter) maybePrune(now time.Time) {
	if now.Sub(l.lastGC) < l.duration {
		return
	}
	for key, b := range l.buckets {
		if now.After(b.expiresAt) {
			delete(l.buckets, key)
		}
	}
	l.lastGC = now
}

// ClientIP extracts the originating client IP, honoring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LoginLimiter throttles password sign-in by IP and by account, so neither a
// single source nor a targeted account can be hammered.
type LoginLimiter struct {
	byIP    *Limiter
	byEmail *Limiter
}

// NewLoginLimiter uses defaults of 10 attempts per IP per minute and 5
// attempts per email per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return &LoginLimiter{
		byIP:    New(10, time.Minute),
		byEmail: New(5, 5*time.Minute),
	}
}

// Check reports whether a login attempt is allowed; on refusal the second
// return is a user-presentable message.
func (ll *LoginLimiter) Check(r *http.Request, email string) (bool, string) {
	if !ll.byIP.Allow(ClientIP(r)) {
		return false, "Too many attempts. Please try again later"
	}
	if email != "" && !ll.byEmail.Allow(strings.ToLower(strings.TrimSpace(email))) {
		return false, "Too many attempts. Please try again later"
	}
	return true, ""
}

// ResetEmail clears the per-account window after a successful sign-in.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.byEmail.Reset(strings.ToLower(strings.TrimSpace(email)))
	}
}

// OTPLimiter throttles verification-code sends by IP and by phone number.
// The per-phone limit also caps the SMS spend an attacker can trigger.
type OTPLimiter struct {
	byIP    *Limiter
	byPhone *Limiter
}

// NewOTPLimiter uses defaults of 10 sends per IP per 10 minutes and 3 sends
// per phone per 10 minutes.
func NewOTPLimiter() *OTPLimiter {
	return &OTPLimiter{
		byIP:    New(10, 10*time.Minute),
		byPhone: New(3, 10*time.Minute),
	}
}

// Check reports whether a code send is allowed for this request and phone.
func (ol *OTPLimiter) Check(r *http.Request, phone string) bool {
	if !ol.byIP.Allow(ClientIP(r)) {
		return false
	}
	return ol.byPhone.Allow(phone)
}

// ResetPhone clears the per-phone window after a successful verification.
func (ol *OTPLimiter) ResetPhone(phone string) {
	ol.byPhone.Reset(phone)
}
