package apimodel

import (
	"strings"

	"github.com/jrsteele09/go-session-client/internal/errors"
)

// Credentials is a login request body.
type Credentials interface {
	Validate() error
}

// PhoneLogin logs a user in with an SMS verification code. Unknown phones are registered.
type PhoneLogin struct {
	Phone        string `json:"phone"`
	Code         string `json:"code"`
	ReferrerCode string `json:"referrer_code,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

func (r PhoneLogin) Validate() error {
	if strings.TrimSpace(r.Phone) == "" {
		return errors.ErrMissingPhone
	}
	if strings.TrimSpace(r.Code) == "" {
		return errors.ErrMissingCode
	}
	return nil
}

// AdminLogin logs into the management dashboard.
type AdminLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r AdminLogin) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return errors.Wrapf(errors.ErrInvalidCredentials, "username and password are required")
	}
	return nil
}

// WxLogin exchanges a WeChat getPhoneNumber code for a session (mini-program only).
type WxLogin struct {
	Code         string `json:"code"`
	OpenID       string `json:"openid,omitempty"`
	ReferrerCode string `json:"referrer_code,omitempty"`
}

func (r WxLogin) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return errors.ErrMissingCode
	}
	return nil
}

// SendCode asks the backend to text a verification code.
type SendCode struct {
	Phone        string `json:"phone"`
	CaptchaToken string `json:"captcha_token,omitempty"`
}

func (r SendCode) Validate() error {
	if strings.TrimSpace(r.Phone) == "" {
		return errors.ErrMissingPhone
	}
	return nil
}
