package service

import (
	"testing"

	"todo-keeper/internal/model"
)

func newTestAccounts(t *testing.T) *AccountService {
	t.Helper()
	lists, users := newTestRepos(t)
	return NewAccountService(users, lists)
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	svc := newTestAccounts(t)

	if err := svc.Register("A@B.com", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, signedIn, err := svc.Current(); err != nil || signedIn {
		t.Errorf("registration must not sign in: signedIn=%t err=%v", signedIn, err)
	}
	if has, err := svc.HasAccounts(); err != nil || !has {
		t.Errorf("HasAccounts = %t, %v", has, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestAccounts(t)

	if err := svc.Register("", "secret"); err != ErrEmptyCredentials {
		t.Errorf("empty email: err = %v", err)
	}
	if err := svc.Register("a@b.com", ""); err != ErrEmptyCredentials {
		t.Errorf("empty password: err = %v", err)
	}

	if err := svc.Register("a@b.com", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	// Same address in different case is still a duplicate.
	if err := svc.Register(" A@B.COM ", "other"); err != ErrAccountExists {
		t.Errorf("duplicate register: err = %v", err)
	}
}

func TestLoginDistinguishesFailures(t *testing.T) {
	svc := newTestAccounts(t)
	if err := svc.Register("a@b.com", "secret"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login("nobody@b.com", "secret"); err != ErrNoAccount {
		t.Errorf("unknown email: err = %v", err)
	}
	if _, err := svc.Login("a@b.com", "wrong"); err != ErrWrongPassword {
		t.Errorf("wrong password: err = %v", err)
	}
	if _, signedIn, _ := svc.Current(); signedIn {
		t.Fatal("failed logins must not sign in")
	}

	email, err := svc.Login("A@B.com", "secret")
	if err != nil || email != "a@b.com" {
		t.Fatalf("Login = %q, %v", email, err)
	}
	if cur, signedIn, _ := svc.Current(); !signedIn || cur != "a@b.com" {
		t.Errorf("Current = %q, %t after login", cur, signedIn)
	}
}

func TestLogoutIsUnconditional(t *testing.T) {
	svc := newTestAccounts(t)
	if err := svc.Logout(); err != nil {
		t.Errorf("logout while signed out: %v", err)
	}

	svc.Register("a@b.com", "secret")
	svc.Login("a@b.com", "secret")
	if err := svc.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, signedIn, _ := svc.Current(); signedIn {
		t.Error("still signed in after logout")
	}
}

func TestChangeEmailMovesAccountAndList(t *testing.T) {
	lists, users := newTestRepos(t)
	svc := NewAccountService(users, lists)

	svc.Register("old@b.com", "secret")
	svc.Login("old@b.com", "secret")

	store, err := NewTaskStore(lists, "old@b.com")
	if err != nil {
		t.Fatalf("NewTaskStore: %v", err)
	}
	if _, err := store.Add("моя задача", "", model.PriorityMedium); err != nil {
		t.Fatalf("Add: %v", err)
	}

	changed, err := svc.ChangeEmail("new@b.com")
	if err != nil || changed != "new@b.com" {
		t.Fatalf("ChangeEmail = %q, %v", changed, err)
	}

	if cur, signedIn, _ := svc.Current(); !signedIn || cur != "new@b.com" {
		t.Errorf("current = %q, %t after change", cur, signedIn)
	}
	// The list moved with the account, not copied.
	movedTo, err := lists.Load("new@b.com")
	if err != nil || len(movedTo) != 1 {
		t.Fatalf("new list = %v, %v", movedTo, err)
	}
	leftBehind, err := lists.Load("old@b.com")
	if err != nil || len(leftBehind) != 0 {
		t.Fatalf("old list = %v, %v", leftBehind, err)
	}
	// The old address is free again.
	if err := svc.Register("old@b.com", "fresh"); err != nil {
		t.Errorf("re-register old address: %v", err)
	}
}

func TestChangeEmailSameAddressIsNoOp(t *testing.T) {
	svc := newTestAccounts(t)
	svc.Register("a@b.com", "secret")
	svc.Login("a@b.com", "secret")

	changed, err := svc.ChangeEmail("A@B.com")
	if err != nil || changed != "a@b.com" {
		t.Fatalf("same-address change = %q, %v", changed, err)
	}
	if _, err := svc.Login("a@b.com", "secret"); err != nil {
		t.Errorf("account damaged by no-op change: %v", err)
	}
}

func TestChangeEmailRejectsTakenAndEmpty(t *testing.T) {
	svc := newTestAccounts(t)
	svc.Register("a@b.com", "secret")
	svc.Register("b@b.com", "secret")
	svc.Login("a@b.com", "secret")

	if _, err := svc.ChangeEmail("b@b.com"); err != ErrEmailTaken {
		t.Errorf("taken address: err = %v", err)
	}
	if _, err := svc.ChangeEmail("  "); err != ErrEmptyEmail {
		t.Errorf("empty address: err = %v", err)
	}

	svc.Logout()
	if _, err := svc.ChangeEmail("c@b.com"); err != ErrNotSignedIn {
		t.Errorf("signed out: err = %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc := newTestAccounts(t)
	svc.Register("a@b.com", "secret")
	svc.Login("a@b.com", "secret")

	if err := svc.ChangePassword("new", "other"); err != ErrPasswordMismatch {
		t.Errorf("mismatch: err = %v", err)
	}
	if err := svc.ChangePassword("", ""); err != ErrEmptyPassword {
		t.Errorf("empty: err = %v", err)
	}
	if err := svc.ChangePassword("fresh", "fresh"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	svc.Logout()
	if _, err := svc.Login("a@b.com", "secret"); err != ErrWrongPassword {
		t.Errorf("old password still works: err = %v", err)
	}
	if _, err := svc.Login("a@b.com", "fresh"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestDeleteAccountRemovesEverything(t *testing.T) {
	lists, users := newTestRepos(t)
	svc := NewAccountService(users, lists)

	svc.Register("a@b.com", "secret")
	svc.Login("a@b.com", "secret")
	store, _ := NewTaskStore(lists, "a@b.com")
	store.Add("исчезнет", "", model.PriorityMedium)

	if err := svc.DeleteAccount(); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}

	if _, signedIn, _ := svc.Current(); signedIn {
		t.Error("still signed in after account deletion")
	}
	if _, err := svc.Login("a@b.com", "secret"); err != ErrNoAccount {
		t.Errorf("account survives deletion: err = %v", err)
	}
	if tasks, err := lists.Load("a@b.com"); err != nil || len(tasks) != 0 {
		t.Errorf("task list survives deletion: %v, %v", tasks, err)
	}

	svc.Logout()
	if err := svc.DeleteAccount(); err != ErrNotSignedIn {
		t.Errorf("signed out deletion: err = %v", err)
	}
}
