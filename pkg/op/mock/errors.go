package mock

import "errors"

var errWrongSecret = errors.New("wrong client secret")
