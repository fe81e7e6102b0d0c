package password

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashWithCost("password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashWithCost() error = %v", err)
	}
	if !Verify("password", hash) {
		t.Error("Verify() rejected the right password")
	}
	if Verify("passw0rd", hash) {
		t.Error("Verify() accepted a wrong password")
	}
}

func TestHashToken(t *testing.T) {
	a := HashToken("token")
	if a != HashToken("token") {
		t.Error("HashToken() is not deterministic")
	}
	if len(a) != 64 {
		t.Errorf("HashToken() length = %d, want 64", len(a))
	}
	if a == HashToken("token2") {
		t.Error("HashToken() collided for different input")
	}
}
