package model

// Backend provider kinds carried at the app level.
const (
	BackendREST     = "rest"
	BackendFirebase = "firebase"
	BackendSupabase = "supabase"
	BackendNetlify  = "netlify"
	BackendVercel   = "vercel"
	BackendWebhook  = "webhook"
)

// Data source kinds.
const (
	DataSourceREST   = "rest"
	DataSourceStatic = "static"
)

// Variable scopes.
const (
	ScopeApp  = "app"
	ScopePage = "page"
)

// AppSchema is the full editable document and the unit of snapshotting.
// Values are treated as immutable once published to a store.
type AppSchema struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Pages       []PageSchema  `json:"pages"`
	DataSources []DataSource  `json:"dataSources"`
	Variables   []VariableDef `json:"variables"`
	Theme       *Theme        `json:"theme,omitempty"`
	Nav         *Nav          `json:"nav,omitempty"`
	Backend     *Backend      `json:"backend,omitempty"`
}

// PageSchema is one page of the document. Root is always of type Root.
type PageSchema struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Root *ComponentNode `json:"root"`
}

// Theme holds HSL triplets such as "258 85% 58%".
type Theme struct {
	Primary       string `json:"primary"`
	Secondary     string `json:"secondary"`
	DarkPrimary   string `json:"darkPrimary,omitempty"`
	DarkSecondary string `json:"darkSecondary,omitempty"`
}

// HasDarkMode reports whether dark-mode colors are defined.
func (t *Theme) HasDarkMode() bool {
	return t != nil && (t.DarkPrimary != "" || t.DarkSecondary != "")
}

// Nav holds app-level navigation hints.
type Nav struct {
	Align     string `json:"align,omitempty"`
	ClassName string `json:"className,omitempty"`
}

// Backend selects how form submissions compose their target URL.
type Backend struct {
	Kind    string `json:"kind"`
	BaseURL string `json:"baseUrl"`
}

// JoinsURL reports whether submissions join BaseURL with the form path.
// Webhook backends use the path as a complete URL.
func (b *Backend) JoinsURL() bool {
	if b == nil {
		return false
	}
	switch b.Kind {
	case BackendREST, BackendFirebase, BackendSupabase, BackendNetlify, BackendVercel:
		return true
	}
	return false
}

// DataSource is a named REST endpoint or a static value.
type DataSource struct {
	ID      string            `json:"id"`
	Kind    string            `json:"kind"`
	Name    string            `json:"name"`
	BaseURL string            `json:"baseUrl,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Data    any               `json:"data,omitempty"`
}

// VariableDef declares a runtime variable and its initial value.
type VariableDef struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Initial any    `json:"initial,omitempty"`
	Scope   string `json:"scope"`
}

// AppPatch carries the root-level fields UpdateApp merges into a document.
// Nil fields are left untouched.
type AppPatch struct {
	Name        *string       `json:"name,omitempty"`
	Theme       *Theme        `json:"theme,omitempty"`
	Nav         *Nav          `json:"nav,omitempty"`
	Backend     *Backend      `json:"backend,omitempty"`
	DataSources []DataSource  `json:"dataSources,omitempty"`
	Variables   []VariableDef `json:"variables,omitempty"`
	Pages       []PageSchema  `json:"pages,omitempty"`
}

// Apply returns a copy of app with the patch merged in.
func (p AppPatch) Apply(app AppSchema) AppSchema {
	if p.Name != nil {
		app.Name = *p.Name
	}
	if p.Theme != nil {
		t := *p.Theme
		app.Theme = &t
	}
	if p.Nav != nil {
		n := *p.Nav
		app.Nav = &n
	}
	if p.Backend != nil {
		b := *p.Backend
		app.Backend = &b
	}
	if p.DataSources != nil {
		app.DataSources = p.DataSources
	}
	if p.Variables != nil {
		app.Variables = p.Variables
	}
	if len(p.Pages) > 0 {
		app.Pages = p.Pages
	}
	return app
}

// PageByID returns the page with the given id.
func (a *AppSchema) PageByID(id string) (PageSchema, bool) {
	for _, p := range a.Pages {
		if p.ID == id {
			return p, true
		}
	}
	return PageSchema{}, false
}

// DataSourceByID returns the data source with the given id or name.
func (a *AppSchema) DataSourceByID(id string) (DataSource, bool) {
	for _, ds := range a.DataSources {
		if ds.ID == id || ds.Name == id {
			return ds, true
		}
	}
	return DataSource{}, false
}
