package jsruntime

import (
	"math"
	"time"

	"github.com/dop251/goja"

	"gitlab.com/codegrader.net/internal/dom"
)

const (
	maxExportDepth = 64
	functionMarker = "[function]"
)

// exportValue converts an engine value into plain JSON-compatible Go values
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	if _, ok := goja.AssertFunction(v); ok {
		return functionMarker
	}
	return normalize(v.Export(), 0)
}

func normalize(v any, depth int) any {
	if depth > maxExportDepth {
		return nil
	}
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		return float64(t)
	case int:
		return float64(t)
	case int32:
		return float64(t)
	case float32:
		return normalizeFloat(float64(t))
	case float64:
		return normalizeFloat(t)
	case string, bool:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e, depth+1)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			if _, isFunc := e.(func(goja.FunctionCall) goja.Value); isFunc {
				out[k] = functionMarker
				continue
			}
			out[k] = normalize(e, depth+1)
		}
		return out
	case func(goja.FunctionCall) goja.Value:
		return functionMarker
	default:
		return t
	}
}

// NaN and the infinities have no JSON form and export as nil
func normalizeFloat(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}

// toNode converts the host snapshot object into a dom tree
func toNode(v any) *dom.Node {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	n := &dom.Node{}
	n.Type, _ = m["type"].(string)
	if n.Type == dom.TextType {
		n.Text, _ = m["text"].(string)
		return n
	}
	if props, ok := m["props"].(map[string]any); ok && len(props) > 0 {
		n.Props = make(map[string]any, len(props))
		for k, p := range props {
			n.Props[k] = normalize(p, 0)
		}
	}
	if handlers, ok := m["handlers"].([]any); ok {
		for _, h := range handlers {
			if s, ok := h.(string); ok {
				n.Handlers = append(n.Handlers, s)
			}
		}
	}
	if children, ok := m["children"].([]any); ok {
		for _, c := range children {
			if child := toNode(c); child != nil {
				n.Children = append(n.Children, child)
			}
		}
	}
	return n
}
