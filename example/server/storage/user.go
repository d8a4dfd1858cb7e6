package storage

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

type User struct {
	ID                string       `yaml:"id" validate:"required"`
	Username          string       `yaml:"username" validate:"required"`
	Email             string       `yaml:"email" validate:"omitempty,email"`
	Phone             string       `yaml:"phone"`
	UserCode          string       `yaml:"userCode"`
	DeviceToken       string       `yaml:"deviceToken"`
	PreferredLanguage language.Tag `yaml:"preferredLanguage"`
}

func (u *User) cibaUser() *ciba.User {
	locale := ""
	if u.PreferredLanguage != language.Und {
		locale = u.PreferredLanguage.String()
	}
	return &ciba.User{
		ID:          u.ID,
		UserCode:    u.UserCode,
		DeviceToken: u.DeviceToken,
		Locale:      locale,
	}
}

type UserStore interface {
	ciba.UserDirectory
	GetUserByID(string) *User
	GetUserByUsername(string) *User
}

type userStore struct {
	users map[string]*User
}

func NewUserStore(users ...*User) UserStore {
	s := userStore{users: make(map[string]*User, len(users))}
	for _, user := range users {
		s.users[user.ID] = user
	}
	return s
}

// StoreFromFile loads the users of a YAML file keyed by their ID.
func StoreFromFile(path string) (UserStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	users := map[string]*User{}
	if err := yaml.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}
	for id, user := range users {
		if user.ID == "" {
			user.ID = id
		}
	}
	return userStore{users: users}, nil
}

func (u userStore) GetUserByID(id string) *User {
	return u.users[id]
}

func (u userStore) GetUserByUsername(username string) *User {
	for _, user := range u.users {
		if user.Username == username {
			return user
		}
	}
	return nil
}

// UserByLoginHint accepts the username, email or phone number of the user.
func (u userStore) UserByLoginHint(_ context.Context, loginHint string) (*ciba.User, error) {
	for _, user := range u.users {
		if user.Username == loginHint ||
			(user.Email != "" && user.Email == loginHint) ||
			(user.Phone != "" && user.Phone == loginHint) {
			return user.cibaUser(), nil
		}
	}
	return nil, ciba.ErrNotFound
}

func (u userStore) UserByIDTokenHint(_ context.Context, subject string) (*ciba.User, error) {
	if user := u.GetUserByID(subject); user != nil {
		return user.cibaUser(), nil
	}
	return nil, ciba.ErrNotFound
}

func (u userStore) UserByLoginHintToken(ctx context.Context, subject oidc.LoginHintSubject) (*ciba.User, error) {
	value := subject.Value()
	if value == "" {
		return nil, ciba.ErrNotFound
	}
	switch subject.SubjectType {
	case "email", "phone", "phone_number":
		return u.UserByLoginHint(ctx, value)
	default:
		return u.UserByIDTokenHint(ctx, value)
	}
}
