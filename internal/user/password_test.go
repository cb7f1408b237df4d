package user

import "testing"

func TestPasswordHashAndVerify(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	hash, err := HashPassword("p@ssw0rd", salt)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "" {
		t.Fatalf("expected non-empty hash")
	}
	if !VerifyPassword("p@ssw0rd", salt, hash) {
		t.Fatalf("expected verify ok")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatalf("expected verify fail")
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	salt, err := GenerateSaltHex()
	if err != nil {
		t.Fatalf("GenerateSaltHex: %v", err)
	}
	if _, err := HashPassword("", salt); err == nil {
		t.Fatalf("expected error for empty password")
	}
}

func TestRolesRoundTrip(t *testing.T) {
	u := User{Roles: RolesJoin([]string{"user", " mechanic ", ""})}
	got := u.RolesSlice()
	if len(got) != 2 || got[0] != "user" || got[1] != "mechanic" {
		t.Fatalf("roles round trip = %v", got)
	}
	if RolesJoin(nil) != "" {
		t.Fatalf("empty roles should join to empty string")
	}
}
