package domain

import (
	"strings"
	"time"
)

// Verification channels.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

// SendCodeRequest is the body of POST /api/verification/send.
type SendCodeRequest struct {
	Channel     string `json:"channel" validate:"required,oneof=sms email"`
	Destination string `json:"destination" validate:"required"`
}

// VerifyCodeRequest is the body of POST /api/verification/verify.
type VerifyCodeRequest struct {
	Channel     string `json:"channel" validate:"required,oneof=sms email"`
	Destination string `json:"destination" validate:"required"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
}

// CodeSent describes a delivered verification code.
type CodeSent struct {
	Destination string `json:"destination"`
	MessageID   string `json:"messageId"`
	ExpiresIn   int    `json:"expiresIn"`
}

// CodeVerified confirms a successful verification.
type CodeVerified struct {
	Destination string    `json:"destination"`
	Verified    bool      `json:"verified"`
	VerifiedAt  time.Time `json:"verifiedAt"`
}

// CodeTTL returns how long a code for the channel stays valid.
func CodeTTL(channel string) time.Duration {
	if channel == ChannelEmail {
		return 10 * time.Minute
	}
	return 5 * time.Minute
}

// MaskDestination hides most of an e-mail local part or phone number.
func MaskDestination(channel, dest string) string {
	if channel == ChannelEmail {
		at := strings.LastIndex(dest, "@")
		if at < 0 {
			return "***"
		}
		local := dest[:at]
		if len(local) > 2 {
			local = local[:2]
		}
		return local + "***" + dest[at:]
	}
	if len(dest) <= 4 {
		return "***"
	}
	return strings.Repeat("*", len(dest)-4) + dest[len(dest)-4:]
}

// StoredCode is the server-side state of an issued verification code. The
// attempt count is kept apart so it can be incremented atomically.
type StoredCode struct {
	Hash string `json:"hash"`
}
