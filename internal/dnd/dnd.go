// Package dnd turns the end of a drag gesture into store commands. Drop
// targets are encoded as strings by the canvas:
//
//	canvas              the page root
//	slot:root:<index>   a position among the root children (moves only)
//	drop:<nodeId>       inside a node
package dnd

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pitabwire/studio/model"
)

// Resolution kinds.
const (
	KindAdd  = "add"
	KindMove = "move"
	KindNone = "none"
)

// Resolution statuses.
const (
	StatusApplied = "applied"
	StatusIgnored = "ignored"
)

// Commands is the slice of the store a drop needs.
type Commands interface {
	RootID() (string, bool)
	NodeByID(id string) (*model.ComponentNode, bool)
	GenerateID(nodeType string) string
	AddNode(parentID string, node *model.ComponentNode) (string, bool)
	MoveNode(id, newParentID string, index *int) bool
	Selection() []string
	SetSelection(ids []string)
}

// Catalog supplies default props for new nodes.
type Catalog interface {
	Defaults(nodeType string) model.Props
}

// Recorder receives resolution counts.
type Recorder interface {
	RecordDnDResolution(kind, status string)
}

type nopRecorder struct{}

func (nopRecorder) RecordDnDResolution(string, string) {}

// Payload is what is being dragged: a palette entry (Type) or an existing
// node (MoveID).
type Payload struct {
	Type   string `json:"type,omitempty"`
	MoveID string `json:"moveId,omitempty"`
}

// DragEnd is the end of a drag gesture.
type DragEnd struct {
	Payload Payload `json:"payload"`
	Target  string  `json:"target"`
}

// Outcome reports what a resolution did.
type Outcome struct {
	Kind     string `json:"kind"`
	Applied  bool   `json:"applied"`
	NodeID   string `json:"nodeId,omitempty"`
	ParentID string `json:"parentId,omitempty"`
	Index    *int   `json:"index,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Target kinds.
const (
	TargetCanvas = "canvas"
	TargetSlot   = "slot"
	TargetDrop   = "drop"
)

// Target is a parsed drop target.
type Target struct {
	Kind   string
	NodeID string
	Index  int
}

// ParseTarget decodes a drop target string.
func ParseTarget(s string) (Target, bool) {
	if s == TargetCanvas {
		return Target{Kind: TargetCanvas}, true
	}
	if rest, ok := strings.CutPrefix(s, "slot:root:"); ok {
		i, err := strconv.Atoi(rest)
		if err != nil || i < 0 {
			return Target{}, false
		}
		return Target{Kind: TargetSlot, Index: i}, true
	}
	if id, ok := strings.CutPrefix(s, "drop:"); ok && id != "" {
		return Target{Kind: TargetDrop, NodeID: id}, true
	}
	return Target{}, false
}

// IsContainer reports whether nodes of the given type accept children.
func IsContainer(nodeType string) bool {
	return model.IsContainerType(nodeType)
}

// Resolver applies drag-and-drop gestures. It keeps no gesture state.
type Resolver struct {
	catalog  Catalog
	recorder Recorder
	logger   *zap.Logger
}

// NewResolver creates a Resolver. A nil recorder disables metrics.
func NewResolver(catalog Catalog, recorder Recorder, logger *zap.Logger) *Resolver {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{catalog: catalog, recorder: recorder, logger: logger}
}

// Resolve applies a drag end to cmds.
func (r *Resolver) Resolve(cmds Commands, ev DragEnd) Outcome {
	out := r.resolve(cmds, ev)
	r.finish(out, zap.String("target", ev.Target))
	return out
}

func (r *Resolver) resolve(cmds Commands, ev DragEnd) Outcome {
	target, ok := ParseTarget(ev.Target)
	if !ok {
		return ignored(KindNone, "unrecognized target")
	}
	root, ok := cmds.RootID()
	if !ok {
		return ignored(KindNone, "no document loaded")
	}

	if id := ev.Payload.MoveID; id != "" {
		var parent string
		var index *int
		switch target.Kind {
		case TargetCanvas:
			parent = root
		case TargetSlot:
			parent = root
			i := target.Index
			index = &i
		case TargetDrop:
			parent = target.NodeID
		}
		moved := cmds.MoveNode(id, parent, index)
		cmds.SetSelection([]string{id})
		out := Outcome{Kind: KindMove, Applied: moved, NodeID: id, ParentID: parent, Index: index}
		if !moved {
			out.Reason = "move rejected"
		}
		return out
	}

	if ev.Payload.Type != "" {
		switch target.Kind {
		case TargetCanvas:
			return r.add(cmds, ev.Payload.Type, root)
		case TargetDrop:
			return r.add(cmds, ev.Payload.Type, target.NodeID)
		}
		return ignored(KindAdd, "slots only accept moves")
	}
	return ignored(KindNone, "empty payload")
}

// Click adds a node of the given type the way a palette click does: inside
// the first selected node when it is a container, otherwise under the page
// root.
func (r *Resolver) Click(cmds Commands, nodeType string) Outcome {
	out := r.click(cmds, nodeType)
	r.finish(out, zap.String("target", "click"))
	return out
}

func (r *Resolver) click(cmds Commands, nodeType string) Outcome {
	if nodeType == "" {
		return ignored(KindAdd, "empty type")
	}
	parent, ok := cmds.RootID()
	if !ok {
		return ignored(KindAdd, "no document loaded")
	}
	if sel := cmds.Selection(); len(sel) > 0 {
		if n, found := cmds.NodeByID(sel[0]); found && IsContainer(n.Type) {
			parent = n.ID
		}
	}
	return r.add(cmds, nodeType, parent)
}

func (r *Resolver) add(cmds Commands, nodeType, parent string) Outcome {
	n := &model.ComponentNode{
		ID:       cmds.GenerateID(nodeType),
		Type:     nodeType,
		Name:     nodeType,
		Props:    r.catalog.Defaults(nodeType),
		Children: []*model.ComponentNode{},
	}
	id, ok := cmds.AddNode(parent, n)
	if !ok {
		return Outcome{Kind: KindAdd, ParentID: parent, Reason: "parent not found"}
	}
	cmds.SetSelection([]string{id})
	return Outcome{Kind: KindAdd, Applied: true, NodeID: id, ParentID: parent}
}

func (r *Resolver) finish(out Outcome, target zap.Field) {
	status := StatusIgnored
	if out.Applied {
		status = StatusApplied
	}
	r.recorder.RecordDnDResolution(out.Kind, status)
	r.logger.Debug("drag resolved",
		target,
		zap.String("kind", out.Kind),
		zap.String("status", status),
		zap.String("node_id", out.NodeID),
		zap.String("reason", out.Reason),
	)
}

func ignored(kind, reason string) Outcome {
	return Outcome{Kind: kind, Reason: reason}
}
