package resolver

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the explicit name-replacement table: legacy sheet names that
// must be rewritten before lookup (renamed ledger accounts, the GRP
// location shorthand). It lives in a YAML file so accountants can amend
// it without a deploy.
type Rules struct {
	Accounts  map[string]string `yaml:"accounts"`
	Locations map[string]string `yaml:"locations"`
}

// DefaultRules are the replacements that predate the rules file.
func DefaultRules() Rules {
	return Rules{
		Locations: map[string]string{"GRP": "GROUP"},
	}
}

// LoadRules reads a rules file, falling back to the defaults when the
// path is empty or the file does not exist.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultRules(), nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}
	if r.Locations == nil {
		r.Locations = DefaultRules().Locations
	}
	return r, nil
}

func (r Rules) apply(kind Kind, name string) string {
	var table map[string]string
	switch kind {
	case Accounts:
		table = r.Accounts
	case Locations:
		table = r.Locations
	}
	trimmed := strings.TrimSpace(name)
	for from, to := range table {
		if strings.EqualFold(trimmed, from) {
			return to
		}
	}
	return trimmed
}
