package memory

import "errors"

var errDuplicate = errors.New("auth_req_id already exists")
