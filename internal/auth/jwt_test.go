package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParseJWT(t *testing.T) {
	token, err := SignJWT("client-a", "secret", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	clientID, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if clientID != "client-a" {
		t.Fatalf("client_id = %q", clientID)
	}
}

func TestParseJWT_WrongSecret(t *testing.T) {
	token, _ := SignJWT("client-a", "secret", time.Hour)
	if _, err := ParseJWT(token, "other"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseJWT_Expired(t *testing.T) {
	token, _ := SignJWT("client-a", "secret", -time.Minute)
	if _, err := ParseJWT(token, "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseJWT_Garbage(t *testing.T) {
	if _, err := ParseJWT("not.a.token", "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashAndCheckKey(t *testing.T) {
	hash, err := HashKey("gateway-key")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckKey(hash, "gateway-key") {
		t.Fatalf("correct key rejected")
	}
	if CheckKey(hash, "wrong-key") {
		t.Fatalf("wrong key accepted")
	}
}
