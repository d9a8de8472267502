package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/addrkit/internal/provider"
)

var noCallbacks = provider.Callbacks{}

func errInvalidRegion(s string) error {
	return eris.Errorf("invalid region %q: want korea or global", s)
}
