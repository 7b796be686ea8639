package referral

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
)

// NewCode returns a random six character upper-case alphanumeric code.
func NewCode() string {
	id := uuid.New()
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = codeAlphabet[int(id[i])%len(codeAlphabet)]
	}
	return string(code)
}

// Link builds the registration deep link carrying code.
func Link(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/#register?ref=" + url.QueryEscape(code)
}

// ParseLink extracts the referral code from a registration deep link.
func ParseLink(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid referral link: %w", err)
	}
	fragment := u.Fragment
	route, query, found := strings.Cut(fragment, "?")
	if !found || route != "register" {
		return "", fmt.Errorf("invalid referral link: %q", raw)
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return "", fmt.Errorf("invalid referral link: %w", err)
	}
	code := values.Get("ref")
	if code == "" {
		return "", fmt.Errorf("referral link has no code: %q", raw)
	}
	return strings.ToUpper(code), nil
}
