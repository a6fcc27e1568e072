package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// CookieSettings contains cookie security settings derived from base URL.
type CookieSettings struct {
	// Secure indicates whether the cookie should only be sent over HTTPS.
	Secure bool
	// Domain is the cookie domain scope (e.g., ".imuii.id" for cross-subdomain sharing).
	Domain string
}

// DeriveCookieSettings determines cookie security settings from the portal base URL:
//   - localhost (http://localhost:5173) → Secure: false, Domain: ""
//   - portal.imuii.id → Secure: true, Domain: ".imuii.id" (shared with the SSO web app)
//   - anything else → Secure from scheme, Domain: "" (host only)
//
// The configCookieDomain parameter allows explicit override.
func DeriveCookieSettings(baseURL string, configCookieDomain string) CookieSettings {
	if configCookieDomain != "" {
		return CookieSettings{
			Secure: isHTTPS(baseURL),
			Domain: configCookieDomain,
		}
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil || baseURL == "" {
		return CookieSettings{Secure: true, Domain: ""}
	}

	hostname := parsedURL.Hostname()
	domain := ""
	if hostname == "imuii.id" || strings.HasSuffix(hostname, ".imuii.id") {
		domain = ".imuii.id"
	}

	return CookieSettings{
		Secure: parsedURL.Scheme != "http",
		Domain: domain,
	}
}

// isHTTPS determines if the given base URL uses HTTPS protocol.
// Returns true for HTTPS, false for HTTP, true for empty/invalid URLs (safe default).
func isHTTPS(baseURL string) bool {
	if baseURL == "" {
		return true
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return true
	}

	return parsedURL.Scheme != "http"
}

// TokenCookie clears the SSO token cookie when the backend rejects it.
type TokenCookie struct {
	Name     string
	Settings CookieSettings
}

// Clear expires the token cookie on the client.
func (c TokenCookie) Clear(w http.ResponseWriter) {
	name := c.Name
	if name == "" {
		name = DefaultTokenCookie
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Settings.Domain,
		MaxAge:   -1,
		Secure:   c.Settings.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
