// Package httpapi implements the HTTP surface (C6): HMAC-authenticated
// dispatch of the C7 request envelope plus a byte-range media file
// server, built on stdlib http.ServeMux with gorilla/websocket for the
// status-push surface.
package httpapi

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/daydream/camera-core/internal/crypto"
	"github.com/daydream/camera-core/internal/settings"
)

const authScheme = "daydreamcamera "

// Authenticator validates the Authorization header of every request
// against the paired shared key: hmac_sha256(shared_key, method || uri
// || body). No request is authorized while the key is
// pending (between INITIATE and FINALIZE).
type Authenticator struct {
	store *settings.Store
}

// NewAuthenticator builds an Authenticator backed by store, so a key
// rotated by a later pairing takes effect immediately.
func NewAuthenticator(store *settings.Store) *Authenticator {
	return &Authenticator{store: store}
}

// Verify checks the Authorization header against method/uri/body,
// returning false if the header is missing or malformed, there is no
// shared key yet, the key is pending, or the tag doesn't match.
func (a *Authenticator) Verify(r *http.Request, body []byte) bool {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, authScheme) {
		return false
	}
	tag, err := base64.URLEncoding.DecodeString(strings.TrimPrefix(header, authScheme))
	if err != nil {
		return false
	}

	if a.store.SharedKeyPending() {
		return false
	}
	key, ok := a.store.Get(settings.KeySharedKey)
	if !ok {
		return false
	}

	want := crypto.HMACSHA256(key, []byte(r.Method), []byte(r.URL.RequestURI()), body)
	return subtle.ConstantTimeCompare(tag, want) == 1
}

// Middleware wraps next, rejecting any request that fails Verify with
// 403 before next ever sees it; every rejection returns 403 without a
// body.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := readAndRestoreBody(r)
		if err != nil {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if !a.Verify(r, body) {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
