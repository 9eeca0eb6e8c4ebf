package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"mime"
	"net/http"
)

const (
	// CSRFSessionKey is the key used to persist tokens in the session store.
	CSRFSessionKey = "csrf_token"
	// CSRFFormField is the form field name carrying the CSRF token.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for JSON callers.
	CSRFHeader = "X-CSRF-Token"
	// MaxFormBytes caps any form body, uploads included.
	MaxFormBytes = 5 << 20
)

// CSRFManager issues and verifies CSRF tokens bound to a session.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager using the provided secret key.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken retrieves or generates a CSRF token for the session.
func (m *CSRFManager) EnsureToken(sess *Session) string {
	if sess == nil {
		return ""
	}
	if token := sess.Get(CSRFSessionKey); token != "" {
		return token
	}
	nonce := make([]byte, 16)
	_, _ = rand.Read(nonce)
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(sess.ID))
	mac.Write(nonce)
	token := base64.RawURLEncoding.EncodeToString(append(nonce, mac.Sum(nil)...))
	sess.Set(CSRFSessionKey, token)
	return token
}

// VerifyToken compares the supplied token with the session token.
func (m *CSRFManager) VerifyToken(sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	expected := sess.Get(CSRFSessionKey)
	if expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// RequestToken extracts the token from the header or form field. Multipart
// bodies are parsed with MaxFormBytes as the memory bound; callers cap the
// body itself.
func RequestToken(r *http.Request) (string, error) {
	if token := r.Header.Get(CSRFHeader); token != "" {
		return token, nil
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(MaxFormBytes); err != nil {
			return "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.PostForm.Get(CSRFFormField), nil
}
