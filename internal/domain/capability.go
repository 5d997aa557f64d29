package domain

// Capability is a closed set of portal modules a principal may be granted.
type Capability string

const (
	CapDashboard   Capability = "dashboard"
	CapNews        Capability = "news"
	CapFranchises  Capability = "franchises"
	CapLeads       Capability = "leads"
	CapClients     Capability = "clients"
	CapAuctions    Capability = "auctions"
	CapTasks       Capability = "tasks"
	CapTraining    Capability = "training"
	CapDocuments   Capability = "documents"
	CapMarketing   Capability = "marketing"
	CapAgenda      Capability = "agenda"
	CapFinance     Capability = "finance"
	CapDatajud     Capability = "datajud"
	CapAIAssistant Capability = "ai_assistant"
	CapSettings    Capability = "settings"
)

// Capabilities lists every capability in sidebar order.
var Capabilities = []Capability{
	CapDashboard, CapNews, CapFranchises, CapLeads, CapClients, CapAuctions,
	CapTasks, CapTraining, CapDocuments, CapMarketing, CapAgenda, CapFinance,
	CapDatajud, CapAIAssistant, CapSettings,
}

// Valid reports whether c is one of the known capabilities.
func (c Capability) Valid() bool {
	switch c {
	case CapDashboard, CapNews, CapFranchises, CapLeads, CapClients, CapAuctions,
		CapTasks, CapTraining, CapDocuments, CapMarketing, CapAgenda, CapFinance,
		CapDatajud, CapAIAssistant, CapSettings:
		return true
	}
	return false
}

// ParsePermissions converts a stored permission map into typed capabilities.
// Unknown keys are returned separately so callers can log them.
func ParsePermissions(raw map[string]bool) (perms map[Capability]bool, unknown []string) {
	perms = make(map[Capability]bool, len(raw))
	for k, v := range raw {
		c := Capability(k)
		if !c.Valid() {
			unknown = append(unknown, k)
			continue
		}
		perms[c] = v
	}
	return perms, unknown
}

// CanAccess is the permission gate.
//
// A missing principal is allowed everywhere except settings. Admins bypass the
// gate. Everyone else is allowed unless the permission map explicitly denies the
// capability; settings is always denied to non-admins. Unknown capabilities are
// denied.
func CanAccess(p *Principal, c Capability) bool {
	if !c.Valid() {
		return false
	}
	if p != nil && p.Role == RoleAdmin {
		return true
	}
	if c == CapSettings {
		return false
	}
	if p == nil {
		return true
	}
	allowed, listed := p.Permissions[c]
	return !listed || allowed
}

// NavItem is one entry of the admin sidebar.
type NavItem struct {
	Key   Capability `json:"key"`
	Label string     `json:"label"`
	Path  string     `json:"path"`
}

// Navigation is the full admin sidebar before filtering.
var Navigation = []NavItem{
	{Key: CapDashboard, Label: "Dashboard", Path: "/admin/dashboard"},
	{Key: CapNews, Label: "Notícias (Blog)", Path: "/admin/news"},
	{Key: CapFranchises, Label: "Franquias", Path: "/admin/franquias"},
	{Key: CapLeads, Label: "Leads (Kanban)", Path: "/admin/leads"},
	{Key: CapClients, Label: "Base de Clientes", Path: "/admin/clients"},
	{Key: CapAuctions, Label: "Leilões", Path: "/admin/leiloes"},
	{Key: CapTasks, Label: "Tarefas", Path: "/admin/tarefas"},
	{Key: CapTraining, Label: "Treinamento", Path: "/admin/treinamento"},
	{Key: CapDocuments, Label: "Documentos", Path: "/admin/documentos"},
	{Key: CapMarketing, Label: "Marketing", Path: "/admin/marketing"},
	{Key: CapAgenda, Label: "Agenda", Path: "/admin/agenda"},
	{Key: CapFinance, Label: "Financeiro", Path: "/admin/financeiro"},
	{Key: CapDatajud, Label: "Jurídico (Datajud)", Path: "/admin/datajud"},
	{Key: CapAIAssistant, Label: "I.A. Jurídica", Path: "/admin/ia-juridica"},
	{Key: CapSettings, Label: "Configurações", Path: "/admin/settings"},
}

// VisibleNavigation filters the sidebar through the same gate used for routes.
func VisibleNavigation(p *Principal) []NavItem {
	out := make([]NavItem, 0, len(Navigation))
	for _, item := range Navigation {
		if CanAccess(p, item.Key) {
			out = append(out, item)
		}
	}
	return out
}
