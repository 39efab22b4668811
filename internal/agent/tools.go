package agent

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pitabwire/studio/internal/tree"
	"github.com/pitabwire/studio/model"
)

func projectParam() mcp.ToolOption {
	return mcp.WithString("projectId", mcp.Description("Project id (optional, defaults to the configured project)"))
}

func (s *Server) registerTreeTools() {
	s.mcp.AddTool(mcp.NewTool("get_tree",
		mcp.WithDescription("Return the component tree of a page as JSON"),
		projectParam(),
		mcp.WithString("pageId", mcp.Description("Page id (optional, defaults to the current page)")),
	), s.tool("get_tree", s.handleGetTree))

	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a component from the catalog as the last child of a node"),
		projectParam(),
		mcp.WithString("type", mcp.Description("Component type, e.g. Button, Card, Text"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("Parent node id (optional, defaults to the page root)")),
		mcp.WithString("props", mcp.Description("JSON object merged over the catalog defaults (optional)")),
	), s.tool("add_node", s.handleAddNode))

	s.mcp.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node under a new parent"),
		projectParam(),
		mcp.WithString("nodeId", mcp.Description("Node to move"), mcp.Required()),
		mcp.WithString("parentId", mcp.Description("New parent node id"), mcp.Required()),
		mcp.WithNumber("index", mcp.Description("Position among the new siblings (optional, appends)")),
	), s.tool("move_node", s.handleMoveNode))

	s.mcp.AddTool(mcp.NewTool("remove_node",
		mcp.WithDescription("Remove a node and its subtree"),
		projectParam(),
		mcp.WithString("nodeId", mcp.Description("Node to remove"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.tool("remove_node", s.handleRemoveNode))

	s.mcp.AddTool(mcp.NewTool("update_props",
		mcp.WithDescription("Merge properties into a node"),
		projectParam(),
		mcp.WithString("nodeId", mcp.Description("Node to update"), mcp.Required()),
		mcp.WithString("props", mcp.Description("JSON object of properties to set"), mcp.Required()),
	), s.tool("update_props", s.handleUpdateProps))
}

func (s *Server) registerPageTools() {
	s.mcp.AddTool(mcp.NewTool("add_page",
		mcp.WithDescription("Add an empty page and make it current"),
		projectParam(),
		mcp.WithString("name", mcp.Description("Page name (optional)")),
	), s.tool("add_page", s.handleAddPage))
}

func (s *Server) registerHistoryTools() {
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last document change"),
		projectParam(),
	), s.tool("undo", s.handleUndo))

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
		projectParam(),
	), s.tool("redo", s.handleRedo))
}

func (s *Server) registerPreviewTools() {
	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render the previewed page as HTML"),
		projectParam(),
	), s.tool("render_preview", s.handleRenderPreview))
}

func boolPtr(v bool) *bool { return &v }

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleGetTree(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	app, _ := st.Present()
	page, ok := st.CurrentPage()
	if id := stringArg(args, "pageId"); id != "" {
		page, ok = app.PageByID(id)
	}
	if !ok {
		return mcp.NewToolResultError("page not found"), nil
	}
	return jsonResult(map[string]any{
		"pageId": page.ID,
		"name":   page.Name,
		"nodes":  tree.Count(page.Root),
		"root":   page.Root,
	})
}

func (s *Server) handleAddNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	nodeType := stringArg(args, "type")
	if nodeType == "" {
		return nil, fmt.Errorf("type is required")
	}
	if _, ok := s.deps.Catalog.Get(nodeType); !ok {
		return mcp.NewToolResultError(model.NewUnknownComponentError(nodeType).Message), nil
	}
	props, err := objectArg(args, "props")
	if err != nil {
		return nil, err
	}
	parent := stringArg(args, "parentId")
	if parent == "" {
		parent, _ = st.RootID()
	}
	node := &model.ComponentNode{
		ID:       st.GenerateID(nodeType),
		Type:     nodeType,
		Name:     nodeType,
		Props:    s.deps.Catalog.Defaults(nodeType).Merge(props),
		Children: []*model.ComponentNode{},
	}
	id, ok := st.AddNode(parent, node)
	return commandResult(st, ok, id, "add_node")
}

func (s *Server) handleMoveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	id := stringArg(args, "nodeId")
	parent := stringArg(args, "parentId")
	if id == "" || parent == "" {
		return nil, fmt.Errorf("nodeId and parentId are required")
	}
	var index *int
	if v, ok := args["index"].(float64); ok {
		i := int(v)
		index = &i
	}
	return commandResult(st, st.MoveNode(id, parent, index), id, "move_node")
}

func (s *Server) handleRemoveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	id := stringArg(args, "nodeId")
	if id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	return commandResult(st, st.RemoveNode(id), id, "remove_node")
}

func (s *Server) handleUpdateProps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	id := stringArg(args, "nodeId")
	if id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	props, err := objectArg(args, "props")
	if err != nil {
		return nil, err
	}
	return commandResult(st, st.UpdateProps(id, props), id, "update_props")
}

func (s *Server) handleAddPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	_, st, err := s.project(ctx, args)
	if err != nil {
		return nil, err
	}
	id, ok := st.AddPage(model.PageSchema{Name: stringArg(args, "name")})
	return commandResult(st, ok, id, "add_page")
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, st, err := s.project(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return commandResult(st, st.Undo(), "", "undo")
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, st, err := s.project(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	return commandResult(st, st.Redo(), "", "redo")
}

func (s *Server) handleRenderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, st, err := s.project(ctx, req.GetArguments())
	if err != nil {
		return nil, err
	}
	if s.deps.Sessions == nil {
		return mcp.NewToolResultError("preview is not available"), nil
	}
	out, err := s.deps.Sessions.Attach(id, st).Render(ctx)
	if err != nil {
		return nil, fmt.Errorf("render preview: %w", err)
	}
	return textResult(out), nil
}
