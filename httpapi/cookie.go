package httpapi

import (
	"net/http"
	"time"

	goSession "github.com/MrEthical07/goSession"
)

// maxAgeSeconds rounds ttl down to whole seconds, keeping at least one second for any
// positive lifetime so a live token is never written as an expiring cookie.
func maxAgeSeconds(ttl time.Duration) int {
	secs := int(ttl / time.Second)
	if secs == 0 && ttl > 0 {
		return 1
	}
	return secs
}

func setRefreshCookie(w http.ResponseWriter, cfg goSession.CookieConfig, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    token,
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   maxAgeSeconds(ttl),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// clearRefreshCookie expires the cookie immediately (Max-Age=0 on the wire).
func clearRefreshCookie(w http.ResponseWriter, cfg goSession.CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     cfg.Path,
		Domain:   cfg.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}
