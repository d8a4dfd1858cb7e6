package mock

import (
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/zitadel/ciba/pkg/ciba"
	"github.com/zitadel/ciba/pkg/oidc"
)

func NewClient(t *testing.T) ciba.Client {
	return NewMockClient(gomock.NewController(t))
}

// NewClientWithConfig returns a client registered for backchannel authentication.
// Push clients are not granted the CIBA grant type.
func NewClientWithConfig(t *testing.T, id string, mode oidc.DeliveryMode, endpoint string, userCodeRequired bool) ciba.Client {
	c := NewClient(t)
	m := c.(*MockClient)
	grantTypes := []oidc.GrantType{oidc.GrantTypeCIBA}
	if mode == oidc.DeliveryModePush {
		grantTypes = []oidc.GrantType{oidc.GrantTypeRefreshToken}
	}
	m.EXPECT().GetID().AnyTimes().Return(id)
	m.EXPECT().DeliveryMode().AnyTimes().Return(mode)
	m.EXPECT().NotificationEndpoint().AnyTimes().Return(endpoint)
	m.EXPECT().UserCodeRequired().AnyTimes().Return(userCodeRequired)
	m.EXPECT().GrantTypes().AnyTimes().Return(grantTypes)
	m.EXPECT().RequestSigningAlg().AnyTimes().Return("")
	return c
}
