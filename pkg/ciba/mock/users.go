package mock

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

// NewUserDirectoryWithUsers resolves login hints and subjects
// to the users of the map, keyed by login hint and by ID.
func NewUserDirectoryWithUsers(t *testing.T, users map[string]*ciba.User) ciba.UserDirectory {
	m := NewMockUserDirectory(gomock.NewController(t))
	lookup := func(_ context.Context, key string) (*ciba.User, error) {
		if user, ok := users[key]; ok {
			return user, nil
		}
		for _, user := range users {
			if user.ID == key {
				return user, nil
			}
		}
		return nil, ciba.ErrNotFound
	}
	m.EXPECT().UserByLoginHint(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(lookup)
	m.EXPECT().UserByIDTokenHint(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(lookup)
	m.EXPECT().UserByLoginHintToken(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(ctx context.Context, subject oidc.LoginHintSubject) (*ciba.User, error) {
			return lookup(ctx, subject.Value())
		})
	return m
}
