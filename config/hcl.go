package config

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/c360/flowpipe/errors"
)

// parseHCL maps native HCL syntax onto a Tree:
//
//	Pipeline {
//	  autostart = true
//	  graph { type = "default" }
//	  nodes "A" { element = "IntSource" node = "source" }
//	  connections { from = "A" to = "B" }
//	}
//
// Attributes become keys. Blocks are grouped by type: a labeled block, or a type that
// repeats, becomes a list; a single unlabeled block becomes a map. The first label is
// stored as "name".
func parseHCL(data []byte, filename string) (Tree, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, parsingFailed(diags, "hcl")
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, parsingFailed(fmt.Errorf("unexpected body type %T", file.Body), "hcl")
	}
	tree, err := bodyToTree(body)
	if err != nil {
		return nil, parsingFailed(err, "hcl")
	}
	return tree, nil
}

func bodyToTree(body *hclsyntax.Body) (Tree, error) {
	tree := make(Tree, len(body.Attributes)+len(body.Blocks))

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		v, err := ctyToAny(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		tree[name] = v
	}

	var (
		order   []string
		grouped = make(map[string][]any)
		listed  = make(map[string]bool)
	)
	for _, block := range body.Blocks {
		child, err := bodyToTree(block.Body)
		if err != nil {
			return nil, err
		}
		if len(block.Labels) > 0 {
			child["name"] = block.Labels[0]
			listed[block.Type] = true
		}
		if _, seen := grouped[block.Type]; !seen {
			order = append(order, block.Type)
		}
		grouped[block.Type] = append(grouped[block.Type], map[string]any(child))
	}
	for _, typ := range order {
		items := grouped[typ]
		if len(items) == 1 && !listed[typ] {
			tree[typ] = items[0]
			continue
		}
		tree[typ] = items
	}
	return tree, nil
}

// ctyToAny converts through cty's JSON encoding, which yields the same shapes as the
// JSON loader.
func ctyToAny(val cty.Value) (any, error) {
	if val.IsNull() {
		return nil, nil
	}
	if !val.IsWhollyKnown() {
		return nil, errors.ErrInvalidConfig
	}
	data, err := ctyjson.Marshal(val, val.Type())
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
