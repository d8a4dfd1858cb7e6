package mock

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/zitadel/ciba/pkg/ciba"
)

func NewStorage(t *testing.T) *MockStorage {
	return NewMockStorage(gomock.NewController(t))
}

// NewStorageWithClients authorizes the clients with their secret
// and rejects everything else.
func NewStorageWithClients(t *testing.T, secrets map[string]string, clients ...ciba.Client) *MockStorage {
	s := NewStorage(t)
	byID := make(map[string]ciba.Client, len(clients))
	for _, c := range clients {
		byID[c.GetID()] = c
	}
	s.EXPECT().AuthorizeClientIDSecret(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, clientID, secret string) error {
			if want, ok := secrets[clientID]; ok && want == secret {
				return nil
			}
			return errWrongSecret
		})
	s.EXPECT().GetClientByClientID(gomock.Any(), gomock.Any()).AnyTimes().
		DoAndReturn(func(_ context.Context, clientID string) (ciba.Client, error) {
			if c, ok := byID[clientID]; ok {
				return c, nil
			}
			return nil, ciba.ErrNotFound
		})
	return s
}
