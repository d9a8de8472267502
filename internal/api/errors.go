package api

import "github.com/rotisserie/eris"

func errBadParam(name, value string) error {
	return eris.Errorf("api: invalid %s %q", name, value)
}
