package store

import (
	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

// Default document values.
const (
	DefaultAppName   = "Untitled"
	DefaultPageName  = "Home"
	DefaultPrimary   = "258 85% 58%"
	DefaultSecondary = "220 40% 96%"
)

// DefaultApp builds the document a new project starts from: one "Home" page
// whose root holds a top navigation menu.
func DefaultApp(projectID string, newID func() string) model.AppSchema {
	alloc := tree.NewAllocator(nil)
	root := &model.ComponentNode{
		ID:    alloc.Next(model.TypeRoot),
		Type:  model.TypeRoot,
		Props: model.Props{},
	}
	root.Children = []*model.ComponentNode{{
		ID:    alloc.Next(model.TypeMenu),
		Type:  model.TypeMenu,
		Props: model.Props{"align": "left", "showTheme": true},
	}}

	return model.AppSchema{
		ID:          projectID,
		Name:        DefaultAppName,
		Pages:       []model.PageSchema{{ID: newID(), Name: DefaultPageName, Root: root}},
		DataSources: []model.DataSource{},
		Variables:   []model.VariableDef{},
		Theme:       &model.Theme{Primary: DefaultPrimary, Secondary: DefaultSecondary},
		Backend:     &model.Backend{Kind: model.BackendREST, BaseURL: ""},
	}
}

// normalize repairs structural gaps in a decoded document so that the
// invariants the commands rely on hold: at least one page, and a Root node
// on every page.
func normalize(app *model.AppSchema, projectID string, newID func() string) {
	if app.ID == "" {
		app.ID = projectID
	}
	if len(app.Pages) == 0 {
		app.Pages = DefaultApp(projectID, newID).Pages
		return
	}
	alloc := tree.NewAllocator(app.Pages)
	for i := range app.Pages {
		if app.Pages[i].ID == "" {
			app.Pages[i].ID = newID()
		}
		if app.Pages[i].Root == nil {
			app.Pages[i].Root = &model.ComponentNode{
				ID:    alloc.Next(model.TypeRoot),
				Type:  model.TypeRoot,
				Props: model.Props{},
			}
		}
	}
}

// SampleCard builds the demonstration subtree: a "Sample" card with a
// heading, two buttons and a table. Ids come from alloc.
func SampleCard(alloc *tree.Allocator) *model.ComponentNode {
	sayHi := &model.ComponentNode{
		ID:    alloc.Next(model.TypeButton),
		Type:  model.TypeButton,
		Name:  "SayHi",
		Props: model.Props{"text": "Say hi"},
	}
	loadPosts := &model.ComponentNode{
		ID:    alloc.Next(model.TypeButton),
		Type:  model.TypeButton,
		Name:  "LoadPosts",
		Props: model.Props{"text": "Load posts"},
	}
	card := &model.ComponentNode{
		ID:    alloc.Next(model.TypeCard),
		Type:  model.TypeCard,
		Props: model.Props{"title": "Sample"},
	}
	card.Children = []*model.ComponentNode{
		{ID: alloc.Next(model.TypeHeading), Type: model.TypeHeading, Props: model.Props{"level": 3, "text": "Welcome"}},
		sayHi,
		loadPosts,
		{ID: alloc.Next(model.TypeTable), Type: model.TypeTable, Props: model.Props{}},
	}
	return card
}

// SampleVariables returns the variables the sample subtree reads.
func SampleVariables(newID func() string) []model.VariableDef {
	return []model.VariableDef{
		{ID: newID(), Name: "username", Type: "string", Initial: "World", Scope: model.ScopeApp},
		{ID: newID(), Name: "posts", Type: "array", Initial: []any{}, Scope: model.ScopeApp},
	}
}

// SampleDataSources returns the REST source the sample loads posts from.
func SampleDataSources(newID func() string) []model.DataSource {
	return []model.DataSource{{
		ID:      newID(),
		Kind:    model.DataSourceREST,
		Name:    "jsonplaceholder",
		BaseURL: "https://jsonplaceholder.typicode.com",
	}}
}
