package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/v0xg/pagescope/internal/snapshot"
)

// AXTree retrieves the accessibility tree of the current page via CDP
// and converts it into a snapshot node tree. A page that exposes no
// tree yields (nil, nil): a reportable outcome, not a fault.
func (b *Browser) AXTree(ctx context.Context) (*snapshot.Node, error) {
	page, err := b.Page()
	if err != nil {
		return nil, err
	}
	res, err := proto.AccessibilityGetFullAXTree{}.Call(page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("browser: accessibility tree: %w", err)
	}
	return BuildTree(res.Nodes), nil
}

// BuildTree assembles CDP's flat node list into a tree. The root is
// the node without a parent (Chrome lists it first in practice).
// Returns nil for an empty list.
func BuildTree(nodes []*proto.AccessibilityAXNode) *snapshot.Node {
	if len(nodes) == 0 {
		return nil
	}
	byID := make(map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode, len(nodes))
	for _, n := range nodes {
		byID[n.NodeID] = n
	}
	root := nodes[0]
	for _, n := range nodes {
		if n.ParentID == "" {
			root = n
			break
		}
	}
	return convertNode(root, byID)
}

func convertNode(ax *proto.AccessibilityAXNode, byID map[proto.AccessibilityAXNodeID]*proto.AccessibilityAXNode) *snapshot.Node {
	n := &snapshot.Node{}

	// Ignored nodes stay in the tree as structural placeholders: no
	// role, no attributes, children intact.
	if !ax.Ignored {
		if ax.Role != nil {
			if role := ax.Role.Value.Str(); role != "none" {
				n.Role = role
			}
		}
		if ax.Name != nil {
			n.Name = ax.Name.Value.Str()
		}
		if ax.Description != nil {
			n.Description = ax.Description.Value.Str()
		}
		if ax.Value != nil && !ax.Value.Value.Nil() {
			n.Value = ax.Value.Value.Val()
		}
		applyProperties(n, ax.Properties)
	}

	for _, id := range ax.ChildIDs {
		child, ok := byID[id]
		if !ok {
			continue
		}
		n.Children = append(n.Children, convertNode(child, byID))
	}
	return n
}

func applyProperties(n *snapshot.Node, props []*proto.AccessibilityAXProperty) {
	for _, p := range props {
		if p.Value == nil {
			continue
		}
		v := p.Value.Value
		switch string(p.Name) {
		case "disabled":
			n.Disabled = v.Bool()
		case "focused":
			n.Focused = v.Bool()
		case "selected":
			n.Selected = v.Bool()
		case "required":
			n.Required = v.Bool()
		case "readonly":
			n.Readonly = v.Bool()
		case "checked":
			n.Checked = triState(v)
		case "pressed":
			n.Pressed = triState(v)
		case "expanded":
			expanded := v.Bool()
			n.Expanded = &expanded
		case "level":
			n.Level = v.Num()
		case "valuemin":
			n.ValueMin = v.Num()
		case "valuemax":
			n.ValueMax = v.Num()
		case "keyshortcuts":
			n.KeyShortcuts = v.Str()
		case "roledescription":
			n.RoleDescription = v.Str()
		case "valuetext":
			n.ValueText = v.Str()
		case "autocomplete":
			n.Autocomplete = v.Str()
		case "hasPopup":
			n.HasPopup = v.Str()
		case "invalid":
			n.Invalid = v.Str()
		case "orientation":
			n.Orientation = v.Str()
		}
	}
}

// triState normalizes checked/pressed, which Chrome reports either as
// a boolean or as the tristate strings "true"/"false"/"mixed".
func triState(v gson.JSON) string {
	switch val := v.Val().(type) {
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return val
	}
	return ""
}
