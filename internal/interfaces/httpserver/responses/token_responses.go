package responses

import "time"

type TokenIssuedResponse struct {
	ID        string    `json:"id"`
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

type TokenStatusResponse struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

type TokenEnabledResponse struct {
	ID             string `json:"id"`
	Enabled        bool   `json:"enabled"`
	AlreadyEnabled bool   `json:"already_enabled"`
}
