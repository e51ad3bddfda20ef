package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// The login flow talks to the bridge's auth surface without an existing
// session; it is used only by the one-time bootstrap command, never during
// steady-state serving.

// SendCode asks the platform to deliver a login code to the given phone
// number, returning the code hash the subsequent SignIn must echo.
func (c *Client) SendCode(ctx context.Context, phone string) (string, error) {
	if phone == "" {
		return "", errors.New("phone number is required")
	}
	raw, err := c.call(ctx, "auth/sendCode", map[string]any{"phone_number": phone})
	if err != nil {
		return "", fmt.Errorf("sending login code: %w", err)
	}
	var res struct {
		PhoneCodeHash string `json:"phone_code_hash"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decoding sendCode result: %w", err)
	}
	if res.PhoneCodeHash == "" {
		return "", errors.New("bridge returned no phone_code_hash")
	}
	return res.PhoneCodeHash, nil
}

// SignIn completes the login with the delivered code and returns the
// exported session credential to persist for steady-state serving.
func (c *Client) SignIn(ctx context.Context, phone, codeHash, code string) (string, error) {
	raw, err := c.call(ctx, "auth/signIn", map[string]any{
		"phone_number":    phone,
		"phone_code_hash": codeHash,
		"phone_code":      code,
	})
	if err != nil {
		return "", fmt.Errorf("signing in: %w", err)
	}
	var res struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("decoding signIn result: %w", err)
	}
	if res.Session == "" {
		return "", errors.New("bridge returned an empty session")
	}
	return res.Session, nil
}
