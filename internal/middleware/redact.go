package middleware

import "net/http"

// loggableURI is the request URI with the session token query parameter
// masked, so logs never carry a usable admin credential.
func loggableURI(r *http.Request) string {
	q := r.URL.Query()
	if !q.Has("token") {
		return r.URL.RequestURI()
	}
	q.Set("token", "REDACTED")
	u := *r.URL
	u.RawQuery = q.Encode()
	return u.RequestURI()
}
