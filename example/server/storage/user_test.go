package storage

import (
	"context"
	"os"
	"path"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

func TestStoreFromFile(t *testing.T) {
	for _, tc := range []struct {
		name       string
		pathToFile string
		content    string
		want       UserStore
		wantErr    bool
	}{
		{
			name:       "normal user file",
			pathToFile: "users.yaml",
			content: `
id1:
  username: alice
  deviceToken: device-1
  preferredLanguage: DE
`,
			want: userStore{map[string]*User{
				"id1": {
					ID:                "id1",
					Username:          "alice",
					DeviceToken:       "device-1",
					PreferredLanguage: language.German,
				},
			}},
		},
		{
			name:       "malformed file",
			pathToFile: "whatever",
			content:    "not a map of users",
			wantErr:    true,
		},
		{
			name:       "not existing file",
			pathToFile: "what/ever/file",
			wantErr:    true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actualPath := path.Join(t.TempDir(), tc.pathToFile)

			if tc.content != "" && tc.pathToFile != "" {
				if err := os.WriteFile(actualPath, []byte(tc.content), 0666); err != nil {
					t.Fatalf("cannot create file with test content: %q", tc.content)
				}
			}
			result, err := StoreFromFile(actualPath)
			if err != nil && !tc.wantErr {
				t.Errorf("StoreFromFile(%q) returned unexpected error %q", tc.pathToFile, err)
			} else if err == nil && tc.wantErr {
				t.Errorf("StoreFromFile(%q) did not return an expected error", tc.pathToFile)
			}
			if !tc.wantErr && !reflect.DeepEqual(tc.want, result.(userStore)) {
				t.Errorf("expected StoreFromFile(%q) = %v, but got %v",
					tc.pathToFile, tc.want, result)
			}
		})
	}
}

func testUsers() UserStore {
	return NewUserStore(
		&User{
			ID:                "id1",
			Username:          "alice",
			Email:             "alice@example.com",
			Phone:             "+41791234567",
			UserCode:          "1234",
			DeviceToken:       "device-1",
			PreferredLanguage: language.German,
		},
		&User{
			ID:       "id2",
			Username: "bob",
		},
	)
}

func TestUserStore_UserByLoginHint(t *testing.T) {
	users := testUsers()
	tests := []struct {
		loginHint string
		wantID    string
		wantErr   error
	}{
		{"alice", "id1", nil},
		{"alice@example.com", "id1", nil},
		{"+41791234567", "id1", nil},
		{"bob", "id2", nil},
		{"", "", ciba.ErrNotFound},
		{"id1", "", ciba.ErrNotFound},
		{"carol", "", ciba.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.loginHint, func(t *testing.T) {
			got, err := users.UserByLoginHint(context.Background(), tt.loginHint)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestUserStore_UserByIDTokenHint(t *testing.T) {
	users := testUsers()

	got, err := users.UserByIDTokenHint(context.Background(), "id1")
	require.NoError(t, err)
	assert.Equal(t, &ciba.User{
		ID:          "id1",
		UserCode:    "1234",
		DeviceToken: "device-1",
		Locale:      "de",
	}, got)

	got, err = users.UserByIDTokenHint(context.Background(), "id2")
	require.NoError(t, err)
	assert.Empty(t, got.Locale)

	_, err = users.UserByIDTokenHint(context.Background(), "alice")
	assert.ErrorIs(t, err, ciba.ErrNotFound)
}

func TestUserStore_UserByLoginHintToken(t *testing.T) {
	users := testUsers()
	tests := []struct {
		name    string
		subject oidc.LoginHintSubject
		wantID  string
	}{
		{
			name:    "email",
			subject: oidc.LoginHintSubject{SubjectType: "email", Email: "alice@example.com"},
			wantID:  "id1",
		},
		{
			name:    "phone",
			subject: oidc.LoginHintSubject{SubjectType: "phone", PhoneNumber: "+41791234567"},
			wantID:  "id1",
		},
		{
			name:    "subject",
			subject: oidc.LoginHintSubject{SubjectType: "iss_sub", Subject: "id2"},
			wantID:  "id2",
		},
		{
			name:    "email is not a subject",
			subject: oidc.LoginHintSubject{SubjectType: "iss_sub", Subject: "alice@example.com"},
		},
		{
			name:    "empty",
			subject: oidc.LoginHintSubject{SubjectType: "email"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := users.UserByLoginHintToken(context.Background(), tt.subject)
			if tt.wantID == "" {
				assert.ErrorIs(t, err, ciba.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}
