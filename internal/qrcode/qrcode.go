// Package qrcode renders room invitations as scannable images.
package qrcode

import (
	"net/url"

	qr "github.com/skip2/go-qrcode"
)

const size = 256

// JoinURL is the address a phone opens to join room code on host.
func JoinURL(host, code string) string {
	u := url.URL{Scheme: "http", Host: host, Path: "/", RawQuery: url.Values{"room": {code}}.Encode()}
	return u.String()
}

// Generate creates a QR code PNG image for the given URL.
func Generate(url string) ([]byte, error) {
	return qr.Encode(url, qr.Medium, size)
}

// GenerateJoin renders the join link for code on host.
func GenerateJoin(host, code string) ([]byte, error) {
	return Generate(JoinURL(host, code))
}
