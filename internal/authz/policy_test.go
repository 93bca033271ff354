package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vulnreport/internal/models"
)

func admin(selected uint) Subject {
	return Subject{UserID: 1, Role: models.RoleAdmin, SelectedCompanyID: selected}
}

func editor(home, selected uint) Subject {
	return Subject{UserID: 2, Role: models.RoleEditor, CompanyID: home, SelectedCompanyID: selected}
}

func viewer(home, selected uint) Subject {
	return Subject{UserID: 3, Role: models.RoleViewer, CompanyID: home, SelectedCompanyID: selected}
}

func TestAuthorize(t *testing.T) {
	cases := []struct {
		name   string
		sub    Subject
		action Action
		res    Resource
		want   bool
	}{
		// admin within the selected tenant
		{"admin edits selected tenant vuln", admin(7), ActionEdit,
			Resource{Kind: "vulnerability", CompanyID: 7}, true},
		{"admin blocked on other tenant vuln", admin(7), ActionEdit,
			Resource{Kind: "vulnerability", CompanyID: 8}, false},
		{"admin exports selected tenant report", admin(7), ActionExport,
			Resource{Kind: "report", CompanyID: 7}, true},
		{"admin blocked on other tenant report", admin(7), ActionExport,
			Resource{Kind: "report", CompanyID: 8}, false},
		{"admin configures selected tenant ai", admin(7), ActionConfig,
			Resource{Kind: "ai", CompanyID: 7}, true},
		{"admin blocked on other tenant ai", admin(7), ActionConfig,
			Resource{Kind: "ai", CompanyID: 8}, false},
		{"admin with no selection passes", admin(0), ActionView,
			Resource{Kind: "vulnerability", CompanyID: 8}, true},

		// company and user administration is cross-tenant for the admin
		{"admin edits any company", admin(7), ActionEdit,
			Resource{Kind: "company", CompanyID: 8}, true},
		{"admin deletes any company", admin(7), ActionDelete,
			Resource{Kind: "company", CompanyID: 8}, true},
		{"admin manages users anywhere", admin(7), ActionEdit,
			Resource{Kind: "user", CompanyID: 8}, true},
		{"admin reads the audit log", admin(0), ActionView,
			Resource{Kind: "audit"}, true},

		// editors
		{"editor edits own tenant vuln", editor(5, 5), ActionEdit,
			Resource{Kind: "vulnerability", CompanyID: 5}, true},
		{"editor creates own tenant vuln", editor(5, 5), ActionCreate,
			Resource{Kind: "vulnerability", CompanyID: 5}, true},
		{"editor cannot delete a vuln", editor(5, 5), ActionDelete,
			Resource{Kind: "vulnerability", CompanyID: 5}, false},
		{"editor cannot touch other tenant", editor(5, 5), ActionView,
			Resource{Kind: "vulnerability", CompanyID: 6}, false},
		{"editor cannot manage users", editor(5, 5), ActionView,
			Resource{Kind: "user"}, false},
		{"editor cannot read audit", editor(5, 5), ActionView,
			Resource{Kind: "audit"}, false},
		{"editor cannot delete a company", editor(5, 5), ActionDelete,
			Resource{Kind: "company", CompanyID: 5}, false},
		{"editor edits own company", editor(5, 5), ActionEdit,
			Resource{Kind: "company", CompanyID: 5}, true},
		{"editor uses the advisor", editor(5, 5), ActionCreate,
			Resource{Kind: "ai", CompanyID: 5}, true},
		{"editor cannot configure the advisor", editor(5, 5), ActionConfig,
			Resource{Kind: "ai", CompanyID: 5}, false},
		{"editor exports reports", editor(5, 5), ActionExport,
			Resource{Kind: "report", CompanyID: 5}, true},

		// viewers
		{"viewer views own tenant vuln", viewer(5, 5), ActionView,
			Resource{Kind: "vulnerability", CompanyID: 5}, true},
		{"viewer exports own tenant report", viewer(5, 5), ActionExport,
			Resource{Kind: "report", CompanyID: 5}, true},
		{"viewer cannot edit", viewer(5, 5), ActionEdit,
			Resource{Kind: "vulnerability", CompanyID: 5}, false},
		{"viewer cannot create", viewer(5, 5), ActionCreate,
			Resource{Kind: "vulnerability", CompanyID: 5}, false},
		{"viewer cannot view users", viewer(5, 5), ActionView,
			Resource{Kind: "user"}, false},
		{"viewer cannot view audit", viewer(5, 5), ActionView,
			Resource{Kind: "audit"}, false},

		// unknown role gets nothing
		{"unknown role denied", Subject{Role: "ghost"}, ActionView,
			Resource{Kind: "vulnerability", CompanyID: 1}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Authorize(tc.sub, tc.action, tc.res))
		})
	}
}

func TestGrantOpensDetailViewOnly(t *testing.T) {
	sub := viewer(5, 5)
	sub.Grants = map[uint]struct{}{42: {}}

	granted := Resource{Kind: "vulnerability", CompanyID: 9, VulnerabilityID: 42}
	assert.True(t, Authorize(sub, ActionView, granted))
	assert.False(t, Authorize(sub, ActionEdit, granted))

	// a grant on one finding opens nothing else in that tenant
	other := Resource{Kind: "vulnerability", CompanyID: 9, VulnerabilityID: 43}
	assert.False(t, Authorize(sub, ActionView, other))
	assert.False(t, Authorize(sub, ActionView, Resource{Kind: "report", CompanyID: 9}))
}

func TestCanSelectCompany(t *testing.T) {
	assert.True(t, CanSelectCompany(admin(0), 1))
	assert.True(t, CanSelectCompany(admin(0), 99))

	assert.True(t, CanSelectCompany(editor(5, 0), 5))
	assert.False(t, CanSelectCompany(editor(5, 0), 6))
	assert.False(t, CanSelectCompany(viewer(0, 0), 5))
}
