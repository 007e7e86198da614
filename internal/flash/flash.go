// Package flash carries one-shot notices across a redirect in a short-lived cookie
package flash

import (
	"encoding/base64"
	"net/http"
)

// CookieName is the name of the flash cookie
const CookieName = "tutorhub_flash"

// Notices shown after a redirect
const (
	AccessDenied       = "You do not have access to that page."
	InvalidCredentials = "Invalid email or password."
	LoggedOut          = "You have been logged out."
	ProfileUpdated     = "Your profile has been updated."
	Registered         = "Your account has been created. Please log in."
)

// Set stores a notice to be shown by the next rendered page
func Set(w http.ResponseWriter, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(message)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the pending notice, if any, and clears it
func Pop(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	message, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return ""
	}
	return string(message)
}
