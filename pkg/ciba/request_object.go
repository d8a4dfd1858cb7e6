package ciba

import (
	"time"

	"github.com/muhlemmer/gu"

	"github.com/zitadel/ciba/pkg/oidc"
)

// ApplyRequestObject overrides the form parameters of req with the
// claims of a verified request object. Without requested_expiry,
// the remaining lifetime of the request object is requested.
func ApplyRequestObject(req *oidc.BackchannelAuthenticationRequest, obj *oidc.BackchannelRequestObject, now time.Time) {
	if len(obj.Scopes) > 0 {
		req.Scopes = obj.Scopes
	}
	if obj.ClientNotificationToken != "" {
		req.ClientNotificationToken = obj.ClientNotificationToken
	}
	if len(obj.ACRValues) > 0 {
		req.ACRValues = obj.ACRValues
	}
	if obj.LoginHintToken != "" {
		req.LoginHintToken = obj.LoginHintToken
	}
	if obj.IDTokenHint != "" {
		req.IDTokenHint = obj.IDTokenHint
	}
	if obj.LoginHint != "" {
		req.LoginHint = obj.LoginHint
	}
	if obj.BindingMessage != "" {
		req.BindingMessage = obj.BindingMessage
	}
	if obj.UserCode != "" {
		req.UserCode = obj.UserCode
	}
	switch {
	case obj.RequestedExpiry != nil:
		req.RequestedExpiry = obj.RequestedExpiry
	case obj.Expiration != 0:
		req.RequestedExpiry = gu.Ptr(int(obj.Expiration.AsTime().Sub(now) / time.Second))
	}
}
