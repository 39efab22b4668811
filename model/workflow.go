package model

// Workflow action types.
const (
	ActionNavigate    = "navigate"
	ActionSetVar      = "setVar"
	ActionCallREST    = "callRest"
	ActionToast       = "toast"
	ActionOpenDialog  = "openDialog"
	ActionCloseDialog = "closeDialog"
)

// Event triggers understood by the runtime.
const (
	TriggerClick  = "onClick"
	TriggerSubmit = "onSubmit"
	TriggerChange = "onChange"
)

// ComponentEvent attaches an ordered list of actions to a node trigger.
type ComponentEvent struct {
	ID      string           `json:"id"`
	Trigger string           `json:"trigger"`
	Actions []WorkflowAction `json:"actions"`
}

// WorkflowAction is a declarative side effect. Type selects which of the
// remaining fields are meaningful:
//
//	navigate     To
//	setVar       Name, ValueExpr
//	callRest     DataSourceID, Path, Method, BodyExpr, AssignToVar, ResultPath
//	toast        MessageExpr, Variant
//	openDialog   DialogID
//	closeDialog  DialogID
type WorkflowAction struct {
	Type         string `json:"type"`
	To           string `json:"to,omitempty"`
	Name         string `json:"name,omitempty"`
	ValueExpr    string `json:"valueExpr,omitempty"`
	DataSourceID string `json:"dataSourceId,omitempty"`
	Path         string `json:"path,omitempty"`
	Method       string `json:"method,omitempty"`
	BodyExpr     string `json:"bodyExpr,omitempty"`
	AssignToVar  string `json:"assignToVar,omitempty"`
	ResultPath   string `json:"resultPath,omitempty"`
	MessageExpr  string `json:"messageExpr,omitempty"`
	Variant      string `json:"variant,omitempty"`
	DialogID     string `json:"dialogId,omitempty"`
}

// Toast variants.
const (
	ToastInfo    = "info"
	ToastSuccess = "success"
	ToastError   = "error"
)

// Toast is a transient user notification.
type Toast struct {
	Message string `json:"message"`
	Variant string `json:"variant,omitempty"`
}
