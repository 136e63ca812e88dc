package server

import (
	"context"
	"testing"
)

func TestNormalizeEmail(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: " Admin@Example.COM ", want: "admin@example.com"},
		{in: "plain@host.tld", want: "plain@host.tld"},
		{in: "", wantErr: true},
		{in: "not-an-email", wantErr: true},
		{in: "two@@example.com", wantErr: true},
	}
	for _, tc := range cases {
		got, err := normalizeEmail(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%q: got %q want %q", tc.in, got, tc.want)
		}
	}
}

func TestPasswordHashAndVerify(t *testing.T) {
	if _, err := hashPassword("short"); !isBadRequestError(err) {
		t.Fatalf("short password: %v", err)
	}

	hash, err := hashPassword(testPassword)
	if err != nil {
		t.Fatal(err)
	}
	a := Account{PasswordHash: hash}
	if !verifyPassword(a, testPassword) {
		t.Fatal("correct password rejected")
	}
	if verifyPassword(a, "wrong password entirely") {
		t.Fatal("wrong password accepted")
	}
}

func TestAccountMemoryStoreUniqueEmail(t *testing.T) {
	store := newAccountMemoryStore()
	ctx := context.Background()

	a, err := store.CreateAccount(ctx, 1, "dup@example.com", testPassword, "manager")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateAccount(ctx, 2, "DUP@example.com", testPassword, "manager"); !isBadRequestError(err) {
		t.Fatalf("duplicate email: %v", err)
	}

	got, ok, err := store.FindAccountByEmail(ctx, "Dup@Example.com")
	if err != nil || !ok || got.ID != a.ID {
		t.Fatalf("find: %+v ok=%v err=%v", got, ok, err)
	}
	got, ok, err = store.GetAccountByID(ctx, a.ID)
	if err != nil || !ok || got.Email != "dup@example.com" {
		t.Fatalf("get: %+v ok=%v err=%v", got, ok, err)
	}
}
