// Package authz is the single policy decision point. Every handler asks
// Authorize with an explicit subject, action, and resource instead of
// re-implementing role and tenant checks per route.
package authz

import "vulnreport/internal/models"

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionExport Action = "export"
	ActionConfig Action = "config"
)

// Subject is the per-request authorization context: the verified user plus
// the explicitly selected tenant. It is derived once per request, never
// read ad hoc from mutable session state.
type Subject struct {
	UserID    uint
	Role      models.UserRole
	CompanyID uint // home company, 0 for the admin

	SelectedCompanyID uint
	Grants            map[uint]struct{} // vulnerability IDs with explicit access
}

// Resource identifies what is being acted on. CompanyID 0 means the
// resource is not tenant-scoped (user administration, audit log).
type Resource struct {
	Kind            string // "vulnerability", "company", "user", "report", "ai", "audit"
	CompanyID       uint
	VulnerabilityID uint
}

// Authorize returns true when the subject may perform the action on the
// resource. Role gate and tenant gate are one decision here.
func Authorize(s Subject, action Action, r Resource) bool {
	if !roleAllows(s.Role, action, r.Kind) {
		return false
	}
	return tenantAllows(s, r)
}

func roleAllows(role models.UserRole, action Action, kind string) bool {
	switch role {
	case models.RoleAdmin:
		return true
	case models.RoleEditor:
		switch kind {
		case "user", "audit":
			return false
		case "ai":
			// editors may call advisor actions but not manage its config
			return action != ActionConfig
		case "company":
			return action != ActionDelete
		case "vulnerability":
			return action != ActionDelete
		default:
			return true
		}
	case models.RoleViewer:
		switch action {
		case ActionView, ActionExport:
			return kind != "user" && kind != "audit"
		default:
			return false
		}
	default:
		return false
	}
}

func tenantAllows(s Subject, r Resource) bool {
	if r.CompanyID == 0 {
		return true
	}
	if s.Role == models.RoleAdmin {
		// admin acts within the tenant selected for this request, but
		// company and user administration stays cross-tenant
		switch r.Kind {
		case "vulnerability", "report", "ai":
			return s.SelectedCompanyID == 0 || s.SelectedCompanyID == r.CompanyID
		default:
			return true
		}
	}
	if s.CompanyID == r.CompanyID {
		return true
	}
	// explicit per-finding grant opens the detail view only
	if r.VulnerabilityID != 0 {
		_, ok := s.Grants[r.VulnerabilityID]
		return ok
	}
	return false
}

// CanSelectCompany reports whether the subject may make the given company
// its active tenant. Non-admins are pinned to their home company.
func CanSelectCompany(s Subject, companyID uint) bool {
	if s.Role == models.RoleAdmin {
		return true
	}
	return s.CompanyID != 0 && s.CompanyID == companyID
}
