package model

// Node type names with dedicated rendering behavior.
const (
	TypeRoot       = "Root"
	TypeText       = "Text"
	TypeHeading    = "Heading"
	TypeButton     = "Button"
	TypeInput      = "Input"
	TypeTextarea   = "Textarea"
	TypeSelect     = "Select"
	TypeSwitch     = "Switch"
	TypeDate       = "Date"
	TypeTime       = "Time"
	TypeDatePicker = "DatePicker"
	TypeRow        = "Row"
	TypeColumn     = "Column"
	TypeGrid       = "Grid"
	TypeCard       = "Card"
	TypeTabs       = "Tabs"
	TypeTable      = "Table"
	TypeAlert      = "Alert"
	TypeBadge      = "Badge"
	TypeImage      = "Image"
	TypeSeparator  = "Separator"
	TypeDialog     = "Dialog"
	TypeSheet      = "Sheet"
	TypeDrawer     = "Drawer"
	TypeSlide      = "Slide"
	TypeAnimate    = "Animate"
	TypeForm       = "Form"
	TypeForms      = "Forms"
	TypeMenu       = "Menu"
)

// containerTypes lists the node types that accept children through
// drag-and-drop. The tree primitives do not enforce it.
var containerTypes = map[string]bool{
	TypeRow:     true,
	TypeColumn:  true,
	TypeGrid:    true,
	TypeCard:    true,
	TypeDialog:  true,
	TypeSheet:   true,
	TypeDrawer:  true,
	TypeSlide:   true,
	TypeAnimate: true,
	TypeTabs:    true,
	TypeForms:   true,
	TypeForm:    true,
	TypeRoot:    true,
}

// IsContainerType reports whether nodes of the given type may host children
// in the editor.
func IsContainerType(nodeType string) bool {
	return containerTypes[nodeType]
}

// ComponentNode is one UI element instance in the component tree.
type ComponentNode struct {
	ID       string            `json:"id"`
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	Props    Props             `json:"props"`
	Bindings map[string]string `json:"bindings,omitempty"`
	Children []*ComponentNode  `json:"children,omitempty"`
	Layout   *Layout           `json:"layout,omitempty"`
	Events   []ComponentEvent  `json:"events,omitempty"`
}

// Layout is a free-form positioning hint.
type Layout struct {
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`
	W *float64 `json:"w,omitempty"`
	H *float64 `json:"h,omitempty"`
}

// ShallowCopy returns a copy of n with its own props, bindings and children
// slice. Child nodes themselves are shared.
func (n *ComponentNode) ShallowCopy() *ComponentNode {
	if n == nil {
		return nil
	}
	c := *n
	c.Props = n.Props.Clone()
	if n.Bindings != nil {
		c.Bindings = make(map[string]string, len(n.Bindings))
		for k, v := range n.Bindings {
			c.Bindings[k] = v
		}
	}
	if n.Children != nil {
		c.Children = append([]*ComponentNode(nil), n.Children...)
	}
	return &c
}

// EventsFor returns the events attached to the given trigger, in order.
func (n *ComponentNode) EventsFor(trigger string) []ComponentEvent {
	var out []ComponentEvent
	for _, ev := range n.Events {
		if ev.Trigger == trigger {
			out = append(out, ev)
		}
	}
	return out
}
