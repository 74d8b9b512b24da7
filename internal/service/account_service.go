package service

import (
	"errors"
	"log"
	"time"

	"todo-keeper/internal/model"
	"todo-keeper/internal/repository"
)

// Account flow errors; the bot maps them to user-facing messages.
var (
	ErrEmptyCredentials = errors.New("email and password are required")
	ErrAccountExists    = errors.New("account already exists")
	ErrNoAccount        = errors.New("no account with this email")
	ErrWrongPassword    = errors.New("incorrect password")
	ErrNotSignedIn      = errors.New("not signed in")
	ErrEmailTaken       = errors.New("email already taken")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmptyEmail       = errors.New("new email is empty")
	ErrEmptyPassword    = errors.New("new password is empty")
)

// AccountService is the signed-out/signed-in state machine over the
// persisted account map and the process-wide current-user marker.
// Passwords are compared as plaintext; see the model.User note.
type AccountService struct {
	users *repository.UserRepository
	lists *repository.TaskListRepository
	now   func() time.Time
}

func NewAccountService(users *repository.UserRepository, lists *repository.TaskListRepository) *AccountService {
	return &AccountService{users: users, lists: lists, now: time.Now}
}

// Current returns the signed-in email, or false when signed out.
func (s *AccountService) Current() (string, bool, error) {
	return s.users.CurrentUser()
}

// Register creates an account and its empty task list. It deliberately
// does not sign the new user in; login stays a separate step.
func (s *AccountService) Register(email, pass string) error {
	email = model.NormalizeEmail(email)
	if email == "" || pass == "" {
		return ErrEmptyCredentials
	}

	users, err := s.users.All()
	if err != nil {
		return err
	}
	if _, ok := users[email]; ok {
		return ErrAccountExists
	}

	users[email] = model.NewUser(email, pass, s.now())
	if err := s.users.SaveAll(users); err != nil {
		return err
	}
	if err := s.lists.EnsureList(email); err != nil {
		return err
	}

	log.Printf("[info] account registered %s", email)
	return nil
}

// Login verifies credentials and marks email as the current user.
// Failures leave the current-user state untouched.
func (s *AccountService) Login(email, pass string) (string, error) {
	email = model.NormalizeEmail(email)
	users, err := s.users.All()
	if err != nil {
		return "", err
	}

	user, ok := users[email]
	if !ok {
		return "", ErrNoAccount
	}
	if user.Pass != pass {
		return "", ErrWrongPassword
	}

	if err := s.users.SetCurrentUser(email); err != nil {
		return "", err
	}
	log.Printf("[info] login %s", email)
	return email, nil
}

// Logout clears the current user unconditionally; signing out while
// signed out is fine.
func (s *AccountService) Logout() error {
	return s.users.ClearCurrentUser()
}

// ChangeEmail moves the signed-in account and its task list to a new
// address. The list entry is relocated, never duplicated.
func (s *AccountService) ChangeEmail(newEmail string) (string, error) {
	cur, signedIn, err := s.users.CurrentUser()
	if err != nil {
		return "", err
	}
	if !signedIn {
		return "", ErrNotSignedIn
	}

	newEmail = model.NormalizeEmail(newEmail)
	if newEmail == "" {
		return "", ErrEmptyEmail
	}
	if newEmail == cur {
		return cur, nil
	}

	users, err := s.users.All()
	if err != nil {
		return "", err
	}
	if _, taken := users[newEmail]; taken {
		return "", ErrEmailTaken
	}

	user := users[cur]
	user.Email = newEmail
	users[newEmail] = user
	delete(users, cur)
	if err := s.users.SaveAll(users); err != nil {
		return "", err
	}
	if err := s.lists.Relocate(cur, newEmail); err != nil {
		return "", err
	}
	if err := s.users.SetCurrentUser(newEmail); err != nil {
		return "", err
	}

	log.Printf("[info] email changed %s -> %s", cur, newEmail)
	return newEmail, nil
}

// ChangePassword sets a new password for the signed-in account; the
// repeated entry must match.
func (s *AccountService) ChangePassword(pass, repeat string) error {
	cur, signedIn, err := s.users.CurrentUser()
	if err != nil {
		return err
	}
	if !signedIn {
		return ErrNotSignedIn
	}
	if pass == "" {
		return ErrEmptyPassword
	}
	if pass != repeat {
		return ErrPasswordMismatch
	}

	users, err := s.users.All()
	if err != nil {
		return err
	}
	user := users[cur]
	user.Pass = pass
	users[cur] = user
	return s.users.SaveAll(users)
}

// DeleteAccount removes the signed-in account and its task list, then
// forces the signed-out state. Confirmation happens at the UI layer.
func (s *AccountService) DeleteAccount() error {
	cur, signedIn, err := s.users.CurrentUser()
	if err != nil {
		return err
	}
	if !signedIn {
		return ErrNotSignedIn
	}

	users, err := s.users.All()
	if err != nil {
		return err
	}
	delete(users, cur)
	if err := s.users.SaveAll(users); err != nil {
		return err
	}
	if err := s.lists.Drop(cur); err != nil {
		return err
	}
	if err := s.users.ClearCurrentUser(); err != nil {
		return err
	}

	log.Printf("[info] account deleted %s", cur)
	return nil
}

// HasAccounts reports whether any account exists, used to steer new
// chats towards registration or login.
func (s *AccountService) HasAccounts() (bool, error) {
	users, err := s.users.All()
	if err != nil {
		return false, err
	}
	return len(users) > 0, nil
}
