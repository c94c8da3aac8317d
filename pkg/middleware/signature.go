package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	apperrors "gatherly/pkg/errors"
	"gatherly/pkg/logger"
)

const HeaderSignature = "X-Signature-256"

// SignatureVerification checks the HMAC-SHA256 of the raw body against the
// X-Signature-256 header ("sha256=<hex>") and restores the body for the next
// handler.
func SignatureVerification(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				reject(w, log, r, "Webhook secret not configured")
				return
			}

			signature := extractSignature(r)
			if signature == "" {
				reject(w, log, r, "Missing "+HeaderSignature+" header")
				return
			}

			body, err := readAndRestoreBody(r)
			if err != nil {
				reject(w, log, r, "Failed to read request body")
				return
			}

			if !VerifySignature(body, signature, secret) {
				reject(w, log, r, "Invalid webhook signature")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractSignature(r *http.Request) string {
	header := r.Header.Get(HeaderSignature)
	if header == "" {
		return ""
	}

	signature, _ := strings.CutPrefix(header, "sha256=")
	return signature
}

func readAndRestoreBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}

	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	return body, nil
}

// Sign returns the hex HMAC-SHA256 of body.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(body []byte, receivedSignature string, secret string) bool {
	return hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(receivedSignature)))
}

func reject(w http.ResponseWriter, log *logger.Logger, r *http.Request, reason string) {
	log.Warn("Webhook verification failed",
		"request_id", RequestIDFromContext(r.Context()),
		"reason", reason,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr,
	)

	writeAppError(w, apperrors.Unauthorized("Unauthorized"))
}
