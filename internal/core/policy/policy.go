// Package policy evaluates role-to-permission grants.
//
// A Policy is built once at startup from configuration and never mutated
// afterwards, so concurrent readers need no synchronisation. Role labels
// match case-insensitively; permission labels match exactly. Unknown roles
// grant nothing.
package policy

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permissions guarding the user management and log endpoints.
const (
	PermUpdateUser = "update-user"
	PermDeleteUser = "delete-user"
	PermViewLogs   = "view-logs"
)

// Policy maps role labels to the set of permissions they grant.
type Policy struct {
	grants map[string]map[string]struct{}
}

// New builds a Policy from a role -> permissions mapping. Role keys are
// normalised to upper case; permission labels are kept verbatim.
func New(mapping map[string][]string) *Policy {
	p := &Policy{grants: make(map[string]map[string]struct{}, len(mapping))}
	for role, perms := range mapping {
		key := normalizeRole(role)
		set, ok := p.grants[key]
		if !ok {
			set = make(map[string]struct{}, len(perms))
			p.grants[key] = set
		}
		for _, perm := range perms {
			set[perm] = struct{}{}
		}
	}
	return p
}

// HasPermission reports whether role grants permission.
func (p *Policy) HasPermission(role, permission string) bool {
	set, ok := p.grants[normalizeRole(role)]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// AnyGrants reports whether at least one of roles grants permission.
func (p *Policy) AnyGrants(roles []string, permission string) bool {
	for _, r := range roles {
		if p.HasPermission(r, permission) {
			return true
		}
	}
	return false
}

// Permissions returns the sorted permissions of role, or nil when the role is
// unknown.
func (p *Policy) Permissions(role string) []string {
	set, ok := p.grants[normalizeRole(role)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for perm := range set {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

// Roles returns the sorted role labels known to the policy.
func (p *Policy) Roles() []string {
	out := make([]string, 0, len(p.grants))
	for r := range p.grants {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func normalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// DefaultMapping is used when no policy file is configured.
func DefaultMapping() map[string][]string {
	return map[string][]string{
		"ADMIN":     {"read", "write", "delete", PermUpdateUser, PermDeleteUser, PermViewLogs},
		"MODERATOR": {"read", "write", PermUpdateUser},
		"USER":      {"read"},
	}
}

// fileFormat mirrors the policy file layout:
//
//	roles:
//	  ADMIN:
//	    permissions: [read, write, delete]
//	  USER:
//	    permissions: [read]
type fileFormat struct {
	Roles map[string]struct {
		Permissions []string `yaml:"permissions"`
	} `yaml:"roles"`
}

// Parse decodes a YAML policy document.
func Parse(data []byte) (*Policy, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("policy: decode: %w", err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("policy: no roles defined")
	}
	mapping := make(map[string][]string, len(f.Roles))
	for role, entry := range f.Roles {
		mapping[role] = entry.Permissions
	}
	return New(mapping), nil
}

// Load reads the policy file at path. An empty path yields the default
// mapping.
func Load(path string) (*Policy, error) {
	if path == "" {
		return New(DefaultMapping()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return Parse(data)
}
