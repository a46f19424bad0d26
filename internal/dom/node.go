// Package dom holds the plain element tree produced by a sandboxed render.
package dom

import (
	"regexp"
	"strings"
)

const TextType = "#text"

// Node is one element or text node of a rendered tree
type Node struct {
	Type     string         `json:"type"`
	Props    map[string]any `json:"props,omitempty"`
	Text     string         `json:"text,omitempty"`
	Handlers []string       `json:"handlers,omitempty"`
	Children []*Node        `json:"children,omitempty"`
}

func (n *Node) IsText() bool {
	return n != nil && n.Type == TextType
}

// Walk visits n and its descendants depth-first until fn returns false
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}
	if !fn(n) {
		return false
	}
	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}
	return true
}

// Find returns all element nodes matching pred in document order
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var out []*Node
	n.Walk(func(x *Node) bool {
		if !x.IsText() && pred(x) {
			out = append(out, x)
		}
		return true
	})
	return out
}

func (n *Node) ByTag(tags ...string) []*Node {
	return n.Find(func(x *Node) bool {
		for _, t := range tags {
			if strings.EqualFold(x.Type, t) {
				return true
			}
		}
		return false
	})
}

func (n *Node) ByRole(role string) []*Node {
	return n.Find(func(x *Node) bool { return x.Role() == role })
}

func (n *Node) WithHandler(name string) []*Node {
	return n.Find(func(x *Node) bool { return x.HasHandler(name) })
}

// TextContent concatenates every text node below n
func (n *Node) TextContent() string {
	var sb strings.Builder
	n.Walk(func(x *Node) bool {
		if x.IsText() {
			sb.WriteString(x.Text)
		}
		return true
	})
	return sb.String()
}

func (n *Node) Prop(name string) (any, bool) {
	if n == nil || n.Props == nil {
		return nil, false
	}
	v, ok := n.Props[name]
	return v, ok
}

func (n *Node) StringProp(name string) string {
	v, ok := n.Prop(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (n *Node) ClassName() string {
	if c := n.StringProp("className"); c != "" {
		return c
	}
	return n.StringProp("class")
}

func (n *Node) HasClassMatching(re *regexp.Regexp) bool {
	for _, c := range strings.Fields(n.ClassName()) {
		if re.MatchString(c) {
			return true
		}
	}
	return false
}

func (n *Node) HasHandler(name string) bool {
	for _, h := range n.Handlers {
		if h == name {
			return true
		}
	}
	return false
}

func (n *Node) IsInteractive() bool {
	return len(n.Handlers) > 0
}

var implicitRoles = map[string]string{
	"button":   "button",
	"a":        "link",
	"nav":      "navigation",
	"ul":       "list",
	"ol":       "list",
	"li":       "listitem",
	"form":     "form",
	"textarea": "textbox",
	"select":   "combobox",
	"h1":       "heading",
	"h2":       "heading",
	"h3":       "heading",
	"h4":       "heading",
	"h5":       "heading",
	"h6":       "heading",
	"img":      "img",
	"dialog":   "dialog",
	"header":   "banner",
	"footer":   "contentinfo",
	"main":     "main",
	"article":  "article",
}

// Role returns the explicit role prop or the implicit ARIA role of the tag
func (n *Node) Role() string {
	if r := n.StringProp("role"); r != "" {
		return r
	}
	if strings.EqualFold(n.Type, "input") {
		switch strings.ToLower(n.StringProp("type")) {
		case "checkbox":
			return "checkbox"
		case "radio":
			return "radio"
		case "submit", "button":
			return "button"
		default:
			return "textbox"
		}
	}
	return implicitRoles[strings.ToLower(n.Type)]
}
