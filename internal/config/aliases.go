package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JeedaveyFCRA/vioverse-pro/internal/entity"
)

type aliasFile struct {
	Aliases []entity.AliasRule `yaml:"aliases"`
	Sources map[string]string  `yaml:"sources"`
}

// AliasTable is the content of an alias file.
type AliasTable struct {
	Aliases []entity.AliasRule
	Sources map[string]string
}

// LoadAliases reads an alias file. The returned table replaces the
// compiled-in alias list; sources, when present, extend the default codes.
func LoadAliases(path string) (*AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Code: ErrUnreadable, Path: path, Message: "cannot read alias file", Err: err}
	}
	return ParseAliases(data, path)
}

// ParseAliases decodes and checks an alias document.
func ParseAliases(data []byte, path string) (*AliasTable, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, &Error{Code: ErrMalformed, Path: path, Message: err.Error(), Err: err}
	}
	for i, a := range f.Aliases {
		if strings.TrimSpace(a.Canonical) == "" {
			return nil, &Error{Code: ErrAlias, Path: path, Message: fmt.Sprintf("aliases[%d]: canonical is required", i)}
		}
		if !hasNonBlank(a.Match) {
			return nil, &Error{Code: ErrAlias, Path: path, Message: fmt.Sprintf("aliases[%d] (%s): match needs at least one substring", i, a.Canonical)}
		}
	}
	// A canonical name must resolve to itself, or canonicalizing twice
	// would not be stable.
	c := entity.NewCanonicalizer(f.Aliases)
	for i, a := range f.Aliases {
		if got := c.Canonicalize(a.Canonical); got != a.Canonical {
			return nil, &Error{Code: ErrAlias, Path: path, Message: fmt.Sprintf("aliases[%d]: canonical %q resolves to %q", i, a.Canonical, got)}
		}
	}
	return &AliasTable{Aliases: f.Aliases, Sources: f.Sources}, nil
}

func hasNonBlank(ss []string) bool {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return true
		}
	}
	return false
}
