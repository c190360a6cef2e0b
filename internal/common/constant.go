// Package common contains shared constants and sentinel errors used across
// TINET components.
package common

// APIKeyHeaderName carries either a user API key or an app API key,
// depending on the endpoint.
const APIKeyHeaderName = "Api-Key"

// SessionCookieName is the cookie holding the signed web session token.
const SessionCookieName = "tinet_session"

// Character sets used for generated credentials.
const (
	LowerLetters = "abcdefghijklmnopqrstuvwxyz"
	UpperLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits       = "0123456789"
	Alphanumeric = UpperLetters + LowerLetters + Digits
)
