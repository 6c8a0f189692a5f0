package account_test

import (
	"os"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gymtrack/internal/domain/account"
)

func TestMain(m *testing.M) {
	account.HashCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// TestAccount_Validate tests validation of Account.
func TestAccount_Validate(t *testing.T) {
	tests := []struct {
		name    string
		account account.Account
		wantErr error
	}{
		{"valid admin", account.Account{Username: "admin", Role: account.RoleAdmin}, nil},
		{"valid trainer", account.Account{Username: "front-desk.2", Role: account.RoleTrainer}, nil},
		{"empty username", account.Account{Username: " ", Role: account.RoleAdmin}, account.ErrEmptyUsername},
		{"upper case username", account.Account{Username: "Admin", Role: account.RoleAdmin}, account.ErrInvalidUsername},
		{"space in username", account.Account{Username: "front desk", Role: account.RoleAdmin}, account.ErrInvalidUsername},
		{"invalid role", account.Account{Username: "bob", Role: "member"}, account.ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if err != tt.wantErr {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAccount_SetPassword tests the SetPassword method.
func TestAccount_SetPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid password", "gym2025!", false},
		{"long password", "correct horse battery staple", false},
		{"empty password", "", true},
		{"too short", "1234", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &account.Account{}
			err := a.SetPassword(tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("SetPassword() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && a.PasswordHash == tt.password {
				t.Error("SetPassword() should hash the password, not store plaintext")
			}
		})
	}
}

// TestAccount_CheckPassword tests the CheckPassword method.
func TestAccount_CheckPassword(t *testing.T) {
	a := &account.Account{}
	if err := a.SetPassword("gym2025!"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}

	if err := a.CheckPassword("gym2025!"); err != nil {
		t.Errorf("CheckPassword(correct) = %v", err)
	}
	if err := a.CheckPassword("gym2024!"); err != account.ErrWrongPassword {
		t.Errorf("CheckPassword(wrong) = %v, want ErrWrongPassword", err)
	}
	empty := &account.Account{}
	if err := empty.CheckPassword("anything"); err != account.ErrWrongPassword {
		t.Errorf("CheckPassword(no hash) = %v, want ErrWrongPassword", err)
	}
}

// TestAccount_Lockout tests RecordFailedLogin, IsLocked and ResetFailedLogins.
func TestAccount_Lockout(t *testing.T) {
	now := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	a := &account.Account{}

	for i := 0; i < account.MaxFailedLogins-1; i++ {
		a.RecordFailedLogin(now)
		if a.IsLocked(now) {
			t.Fatalf("account locked after %d failures", i+1)
		}
	}

	a.RecordFailedLogin(now)
	if !a.IsLocked(now) {
		t.Fatal("account should be locked after 5 failures")
	}
	if a.IsLocked(now.Add(account.LockoutDuration)) {
		t.Error("lock should lapse after LockoutDuration")
	}

	a.ResetFailedLogins()
	if a.FailedLogins != 0 || a.IsLocked(now) {
		t.Errorf("after reset: FailedLogins=%d locked=%v", a.FailedLogins, a.IsLocked(now))
	}
}

func TestNormalizeUsername(t *testing.T) {
	if got := account.NormalizeUsername("  Trainer "); got != "trainer" {
		t.Errorf("NormalizeUsername() = %q", got)
	}
}
