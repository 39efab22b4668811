// Package workflow executes the declarative action lists attached to
// component events: toasts, variable assignment, REST calls against data
// sources, overlay control and page navigation.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/pitabwire/studio/internal/expression"
	"github.com/pitabwire/studio/internal/invoker"
	"github.com/pitabwire/studio/model"
)

// Action outcomes reported to the Recorder.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Host receives the effects of actions that reach outside the runtime
// variables.
type Host interface {
	Notify(t model.Toast)
	// Navigate switches to the page with the given id or name and reports
	// whether such a page exists.
	Navigate(target string) bool
	SetOverlay(dialogID string, open bool)
}

// Caller performs outbound requests. *invoker.Client implements it.
type Caller interface {
	Do(ctx context.Context, req invoker.Request) (invoker.Response, error)
}

// Recorder receives one count per executed action.
type Recorder interface {
	RecordWorkflowAction(actionType, status string)
}

// Scope is everything an action list runs against. Runtime is mutated in
// place by setVar and callRest.
type Scope struct {
	App     *model.AppSchema
	Runtime *model.RuntimeContext
	Host    Host
}

// Engine runs action lists. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	caller   Caller
	recorder Recorder
	logger   *zap.Logger
}

// NewEngine creates an engine. caller may be nil, in which case callRest
// actions against REST data sources fail.
func NewEngine(caller Caller, recorder Recorder, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{caller: caller, recorder: recorder, logger: logger}
}

// Run executes actions in order. A failing callRest surfaces an error toast
// and stops the list, since later actions usually depend on its result.
// The returned error is informational; callers need not act on it.
func (e *Engine) Run(ctx context.Context, scope Scope, actions []model.WorkflowAction) error {
	if scope.Runtime == nil {
		scope.Runtime = &model.RuntimeContext{}
	}
	for i, a := range actions {
		status := StatusOK
		err := e.execute(ctx, scope, a)
		switch {
		case errors.Is(err, errSkipped):
			status = StatusSkipped
		case err != nil:
			status = StatusFailed
		}
		e.record(a.Type, status)
		if status == StatusFailed {
			e.logger.Warn("workflow action failed",
				zap.Int("index", i),
				zap.String("type", a.Type),
				zap.Error(err),
			)
			return fmt.Errorf("workflow: action %d (%s): %w", i, a.Type, err)
		}
	}
	return nil
}

// errSkipped marks an action that was ignored without failing the list.
var errSkipped = errors.New("skipped")

func (e *Engine) execute(ctx context.Context, scope Scope, a model.WorkflowAction) error {
	rt := scope.Runtime
	switch a.Type {
	case model.ActionToast:
		variant := a.Variant
		if variant == "" {
			variant = model.ToastInfo
		}
		e.notify(scope, model.Toast{Message: expression.EvalTemplate(a.MessageExpr, rt), Variant: variant})
		return nil

	case model.ActionSetVar:
		if a.Name == "" {
			e.logger.Debug("setVar without a name ignored")
			return errSkipped
		}
		rt.SetVar(a.Name, expression.ResolveValue(a.ValueExpr, rt))
		return nil

	case model.ActionCallREST:
		return e.callREST(ctx, scope, a)

	case model.ActionOpenDialog, model.ActionCloseDialog:
		if a.DialogID == "" || scope.Host == nil {
			return errSkipped
		}
		scope.Host.SetOverlay(a.DialogID, a.Type == model.ActionOpenDialog)
		return nil

	case model.ActionNavigate:
		target := strings.TrimSpace(expression.EvalTemplate(a.To, rt))
		if target == "" || scope.Host == nil {
			return errSkipped
		}
		if !scope.Host.Navigate(target) {
			e.logger.Debug("navigate target not found", zap.String("to", target))
			return errSkipped
		}
		return nil
	}

	e.logger.Debug("unknown workflow action ignored", zap.String("type", a.Type))
	return errSkipped
}

func (e *Engine) callREST(ctx context.Context, scope Scope, a model.WorkflowAction) error {
	if scope.App == nil {
		return errors.New("no document in scope")
	}
	ds, ok := scope.App.DataSourceByID(a.DataSourceID)
	if !ok {
		err := fmt.Errorf("unknown data source %q", a.DataSourceID)
		e.notify(scope, model.Toast{Message: "Request failed: " + err.Error(), Variant: model.ToastError})
		return err
	}

	rt := scope.Runtime
	var (
		raw  []byte
		body any
	)
	if ds.Kind == model.DataSourceStatic {
		body = ds.Data
		raw, _ = json.Marshal(ds.Data)
	} else {
		if e.caller == nil {
			return errors.New("no outbound client configured")
		}
		headers := make(map[string]string, len(ds.Headers))
		for k, v := range ds.Headers {
			headers[k] = expression.EvalTemplate(v, rt)
		}
		method := strings.ToUpper(a.Method)
		if method == "" {
			method = http.MethodGet
		}
		req := invoker.Request{
			Source:  invoker.SourceREST,
			Method:  method,
			URL:     invoker.JoinURL(expression.EvalTemplate(ds.BaseURL, rt), expression.EvalTemplate(a.Path, rt)),
			Headers: headers,
		}
		if a.BodyExpr != "" {
			req.Body = requestBody(a.BodyExpr, rt)
		}

		resp, err := e.caller.Do(ctx, req)
		if err != nil {
			e.notify(scope, model.Toast{Message: "Request failed: " + err.Error(), Variant: model.ToastError})
			return err
		}
		if !resp.OK() {
			e.notify(scope, model.Toast{
				Message: fmt.Sprintf("Request failed: %d", resp.StatusCode),
				Variant: model.ToastError,
			})
			return fmt.Errorf("%s %s returned status %d", method, req.URL, resp.StatusCode)
		}
		raw, body = resp.Raw, resp.Body
		if body == nil && len(raw) > 0 {
			body = string(raw)
		}
	}

	if a.AssignToVar == "" {
		return nil
	}
	if a.ResultPath != "" {
		res := gjson.GetBytes(raw, a.ResultPath)
		if !res.Exists() {
			rt.SetVar(a.AssignToVar, nil)
			return nil
		}
		rt.SetVar(a.AssignToVar, res.Value())
		return nil
	}
	rt.SetVar(a.AssignToVar, body)
	return nil
}

// requestBody evaluates a body expression. A single placeholder keeps its
// type; text that evaluates to JSON is decoded so it is not sent as a
// quoted string.
func requestBody(expr string, rt *model.RuntimeContext) any {
	v := expression.ResolveValue(expr, rt)
	s, ok := v.(string)
	if !ok {
		return v
	}
	var decoded any
	if json.Unmarshal([]byte(s), &decoded) == nil {
		return decoded
	}
	return s
}

func (e *Engine) notify(scope Scope, t model.Toast) {
	if scope.Host != nil {
		scope.Host.Notify(t)
	}
}

func (e *Engine) record(actionType, status string) {
	if e.recorder != nil {
		e.recorder.RecordWorkflowAction(actionType, status)
	}
}
