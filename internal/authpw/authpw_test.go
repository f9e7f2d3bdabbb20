package authpw

import "testing"

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("koa-wood-credenza")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "koa-wood-credenza" {
		t.Fatal("hash should not equal plaintext")
	}
	if err := Compare(hash, "koa-wood-credenza"); err != nil {
		t.Errorf("compare correct password: %v", err)
	}
	if err := Compare(hash, "wrong-password"); err != ErrMismatch {
		t.Errorf("expected ErrMismatch, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("short"); err == nil {
		t.Error("expected rejection of short password")
	}
	if err := Validate("long-enough-password"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
