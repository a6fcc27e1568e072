package auth

import (
	"net/http"
	"net/url"
	"strings"
)

// LoginRedirect builds the single sign-on round trip between the portal and
// the web app that owns the login page.
type LoginRedirect struct {
	WebBaseURL    string
	PortalBaseURL string
}

// LoginURL returns the web app login page that sends the user back to the
// portal callback, which then forwards to returnPath.
//
//	{web}/login?redirect={portal}/auth/callback?redirect={returnPath}
func (l LoginRedirect) LoginURL(returnPath string) string {
	callback := strings.TrimRight(l.PortalBaseURL, "/") + "/auth/callback"
	if returnPath != "" {
		callback += "?" + url.Values{"redirect": {returnPath}}.Encode()
	}
	return strings.TrimRight(l.WebBaseURL, "/") + "/login?" + url.Values{"redirect": {callback}}.Encode()
}

// SafeReturnPath accepts only same-site relative paths. The value is decoded
// once more before checking, so an encoded ".." is caught too. Anything
// else yields "/".
func SafeReturnPath(raw string) string {
	if raw == "" {
		return "/"
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "/"
	}
	if !strings.HasPrefix(decoded, "/") || strings.Contains(decoded, "..") {
		return "/"
	}
	// protocol-relative and backslash forms leave the site in browsers
	if strings.HasPrefix(decoded, "//") || strings.Contains(decoded, `\`) {
		return "/"
	}
	return decoded
}

// ReturnPathFromReferer returns the path (and query) of a same-host Referer,
// which is where the browser was when an API call came back unauthorized.
func ReturnPathFromReferer(r *http.Request) string {
	ref := r.Referer()
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return "/"
	}
	return SafeReturnPath(u.RequestURI())
}
