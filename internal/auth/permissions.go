package auth

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Permissions maps a role name to the permissions it grants.
type Permissions map[string][]string

// LoadPermissions reads a permissions.yml file of the form:
//
//	roles:
//	  doktor: [patient:create, ...]
//	  hasta:  [appointment:request, ...]
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var pf struct {
		Roles map[string][]string `yaml:"roles"`
	}
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return Permissions(pf.Roles), nil
}
