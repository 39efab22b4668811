package render

import "github.com/pitabwire/studio/model"

func registerBuiltins(e *Engine) {
	e.Register(model.TypeRoot, ComponentFunc(renderRoot))
	e.Register(model.TypeText, ComponentFunc(renderText))
	e.Register(model.TypeHeading, ComponentFunc(renderHeading))
	e.Register(model.TypeButton, button{})
	for _, t := range []string{model.TypeInput, model.TypeTextarea, model.TypeSelect, model.TypeSwitch, model.TypeDate, model.TypeTime} {
		e.Register(t, field{})
	}
	e.Register(model.TypeDatePicker, instanceComponent{create: newDatePicker})
	e.Register(model.TypeRow, ComponentFunc(renderFlex))
	e.Register(model.TypeColumn, ComponentFunc(renderFlex))
	e.Register(model.TypeGrid, ComponentFunc(renderGrid))
	e.Register(model.TypeCard, ComponentFunc(renderCard))
	e.Register(model.TypeTabs, ComponentFunc(renderTabs))
	e.Register(model.TypeTable, ComponentFunc(renderTable))
	e.Register(model.TypeAlert, ComponentFunc(renderAlert))
	e.Register(model.TypeBadge, ComponentFunc(renderBadge))
	e.Register(model.TypeImage, ComponentFunc(renderImage))
	e.Register(model.TypeSeparator, ComponentFunc(renderSeparator))
	for _, t := range []string{model.TypeDialog, model.TypeSheet, model.TypeDrawer} {
		e.Register(t, instanceComponent{create: newOverlay})
	}
	e.Register(model.TypeSlide, instanceComponent{create: newSlide})
	e.Register(model.TypeAnimate, instanceComponent{create: newAnimate})
	e.Register(model.TypeForm, form{})
	e.Register(model.TypeForms, form{grid: true})
	e.Register(model.TypeMenu, menu{})
}
