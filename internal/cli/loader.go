package cli

import (
	"errors"
	"fmt"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/compiler"
	"github.com/JeedaveyFCRA/vioverse-pro/internal/config"
)

// errorCode returns the code carried by a load, config or validation error.
func errorCode(err error) string {
	var loadErr *compiler.LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return cfgErr.Code
	}
	var valErr compiler.ValidationError
	if errors.As(err, &valErr) {
		return valErr.Code
	}
	return compiler.ErrCodeGeneric
}

// errorList flattens a joined error for JSON details.
func errorList(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var out []string
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return []string{fmt.Sprint(err)}
}
