// Package gcloud holds the Google API adapters: service-account
// authentication, the Sheets-backed stock and orders stores, the Drive clip
// archiver and the Speech-to-Text recognizer.
//
// Clients are constructed explicitly and passed in, never reached through
// package-level singletons, so every consumer can substitute a test double.
package gcloud

import (
	"context"
	"net/http"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/sheets/v4"
	speech "google.golang.org/api/speech/v1"
)

// NewHTTPClient builds an OAuth2-authenticated HTTP client from
// service-account credentials, scoped for Sheets, Drive and Speech.
func NewHTTPClient(ctx context.Context, clientEmail, privateKey string) *http.Client {
	cfg := &jwt.Config{
		Email:      clientEmail,
		PrivateKey: []byte(privateKey),
		Scopes: []string{
			sheets.SpreadsheetsScope,
			drive.DriveScope,
			speech.CloudPlatformScope,
		},
		TokenURL: google.JWTTokenURL,
	}
	return cfg.Client(ctx)
}
