package service

import (
	"context"
	"fmt"

	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
)

// RoleResolver maps requested signup labels to canonical roles.
type RoleResolver struct {
	catalog ports.RoleRepository
}

// NewRoleResolver returns a RoleResolver backed by catalog.
func NewRoleResolver(catalog ports.RoleRepository) *RoleResolver {
	return &RoleResolver{catalog: catalog}
}

// Resolve returns the canonical roles for labels in ascending privilege order.
// No labels means USER. Every resolved role must exist in the catalog;
// otherwise domain.ErrRoleCatalogNotSeeded is returned.
func (r *RoleResolver) Resolve(ctx context.Context, labels []string) ([]domain.RoleName, error) {
	wanted := make(map[domain.RoleName]struct{}, len(labels)+1)
	for _, l := range labels {
		wanted[domain.RoleFromLabel(l)] = struct{}{}
	}
	if len(wanted) == 0 {
		wanted[domain.RoleUser] = struct{}{}
	}

	out := make([]domain.RoleName, 0, len(wanted))
	for _, name := range domain.AllRoles() {
		if _, ok := wanted[name]; !ok {
			continue
		}
		role, err := r.catalog.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve role %s: %w", name, err)
		}
		out = append(out, role.Name)
	}
	return out, nil
}
