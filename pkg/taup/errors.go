package taup

import "errors"

var ErrQuery = errors.New("taup: invalid query")
