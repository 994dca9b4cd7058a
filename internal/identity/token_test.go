package identity

import (
	"encoding/base64"
	"encoding/json"
	"testing"
)

func makeIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]any{"alg": "RS256", "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + ".sig"
}

func TestDecodeIDToken_Success(t *testing.T) {
	raw := makeIDToken(t, map[string]any{
		"sub":            "idp|abc123",
		"email":          "user@example.com",
		"email_verified": true,
	})

	claims, err := DecodeIDToken(raw)
	if err != nil {
		t.Fatalf("DecodeIDToken: %v", err)
	}
	if claims.Subject != "idp|abc123" {
		t.Errorf("Subject = %q, want idp|abc123", claims.Subject)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Email = %q, want user@example.com", claims.Email)
	}
	if !claims.EmailVerified {
		t.Error("EmailVerified = false, want true")
	}
}

func TestDecodeIDToken_Success_UnverifiedEmail(t *testing.T) {
	raw := makeIDToken(t, map[string]any{
		"sub":   "idp|abc123",
		"email": "user@example.com",
	})

	claims, err := DecodeIDToken(raw)
	if err != nil {
		t.Fatalf("DecodeIDToken: %v", err)
	}
	if claims.EmailVerified {
		t.Error("EmailVerified = true, want false when claim absent")
	}
}

func TestDecodeIDToken_Failure_Malformed(t *testing.T) {
	if _, err := DecodeIDToken("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestDecodeIDToken_Failure_MissingSubject(t *testing.T) {
	raw := makeIDToken(t, map[string]any{"email": "user@example.com"})
	if _, err := DecodeIDToken(raw); err == nil {
		t.Error("expected error for token without sub")
	}
}
