package oidc

import (
	"encoding/json"
	"strings"
	"time"
)

type Audience []string

func (a *Audience) UnmarshalJSON(text []byte) error {
	var i any
	err := json.Unmarshal(text, &i)
	if err != nil {
		return err
	}
	switch aud := i.(type) {
	case []any:
		*a = make([]string, len(aud))
		for i, audience := range aud {
			str, ok := audience.(string)
			if !ok {
				return ErrInvalidRequest().WithDescription("aud must be a string or an array of strings")
			}
			(*a)[i] = str
		}
	case string:
		*a = []string{aud}
	}
	return nil
}

// Contains reports whether the audience holds the value v.
func (a Audience) Contains(v string) bool {
	for _, aud := range a {
		if aud == v {
			return true
		}
	}
	return false
}

// SpaceDelimitedArray is a list of strings which is
// encoded as a single space separated string on the wire,
// as used for scope and acr_values.
type SpaceDelimitedArray []string

func (s SpaceDelimitedArray) String() string {
	return strings.Join(s, " ")
}

func (s SpaceDelimitedArray) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SpaceDelimitedArray) UnmarshalText(text []byte) error {
	*s = strings.Fields(string(text))
	return nil
}

func (s SpaceDelimitedArray) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SpaceDelimitedArray) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = strings.Fields(str)
	return nil
}

// Contains reports whether v is one of the values.
func (s SpaceDelimitedArray) Contains(v string) bool {
	for _, e := range s {
		if e == v {
			return true
		}
	}
	return false
}

type GrantType string

const (
	// GrantTypeCIBA defines the grant_type `urn:openid:params:grant-type:ciba`
	// used at the token endpoint to redeem an auth_req_id
	GrantTypeCIBA GrantType = "urn:openid:params:grant-type:ciba"

	GrantTypeCode GrantType = "authorization_code"

	GrantTypeRefreshToken GrantType = "refresh_token"
)

// Time is a unix timestamp in seconds as used by JWT claims.
type Time int64

func (ts Time) AsTime() time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(int64(ts), 0)
}

func FromTime(tt time.Time) Time {
	if tt.IsZero() {
		return 0
	}
	return Time(tt.Unix())
}

func NowTime() Time {
	return FromTime(time.Now())
}
