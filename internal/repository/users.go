package repository

import (
	"strconv"

	"todo-keeper/internal/model"
)

const (
	keyUsers       = "users"
	keyCurrentUser = "current_user"
	keyDarkTheme   = "darkTheme"
)

// UserRepository persists account records and the current-user marker.
type UserRepository struct {
	kv *KV
}

func NewUserRepository(kv *KV) *UserRepository {
	return &UserRepository{kv: kv}
}

// All returns the email-to-account map, empty when nothing is stored.
func (r *UserRepository) All() (map[string]model.User, error) {
	users := map[string]model.User{}
	if _, err := r.kv.Get(keyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveAll replaces the whole account map in one write.
func (r *UserRepository) SaveAll(users map[string]model.User) error {
	return r.kv.Put(keyUsers, users)
}

// CurrentUser returns the signed-in email, or false when signed out.
func (r *UserRepository) CurrentUser() (string, bool, error) {
	var email string
	ok, err := r.kv.Get(keyCurrentUser, &email)
	if err != nil {
		return "", false, err
	}
	return email, ok && email != "", nil
}

// SetCurrentUser marks email as the single signed-in account.
func (r *UserRepository) SetCurrentUser(email string) error {
	return r.kv.Put(keyCurrentUser, model.NormalizeEmail(email))
}

// ClearCurrentUser removes the signed-in marker.
func (r *UserRepository) ClearCurrentUser() error {
	return r.kv.Delete(keyCurrentUser)
}

// SettingsRepository keeps small display preferences.
type SettingsRepository struct {
	kv *KV
}

func NewSettingsRepository(kv *KV) *SettingsRepository {
	return &SettingsRepository{kv: kv}
}

// DarkTheme reads the theme flag, defaulting to light.
func (r *SettingsRepository) DarkTheme() (bool, error) {
	// Stored boolean-as-string for layout compatibility.
	var raw string
	ok, err := r.kv.Get(keyDarkTheme, &raw)
	if err != nil || !ok {
		return false, err
	}
	dark, err := strconv.ParseBool(raw)
	if err != nil {
		return false, nil
	}
	return dark, nil
}

// SetDarkTheme stores the theme flag.
func (r *SettingsRepository) SetDarkTheme(dark bool) error {
	return r.kv.Put(keyDarkTheme, strconv.FormatBool(dark))
}
