package dom

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleTree() *Node {
	return &Node{
		Type: "div",
		Props: map[string]any{"className": "card shadow-md"},
		Children: []*Node{
			{Type: "h2", Children: []*Node{{Type: TextType, Text: "Title"}}},
			{Type: "button", Handlers: []string{"onClick"}, Children: []*Node{{Type: TextType, Text: "Go"}}},
			{Type: "input", Props: map[string]any{"type": "checkbox"}},
			{Type: "ul", Children: []*Node{
				{Type: "li", Children: []*Node{{Type: TextType, Text: "a"}}},
				{Type: "li", Children: []*Node{{Type: TextType, Text: "b"}}},
			}},
		},
	}
}

func TestNode_Queries(t *testing.T) {
	root := sampleTree()

	assert.Equal(t, "TitleGoab", root.TextContent())
	assert.Len(t, root.ByTag("li"), 2)
	assert.Len(t, root.ByRole("button"), 1)
	assert.Len(t, root.ByRole("checkbox"), 1)
	assert.Len(t, root.ByRole("heading"), 1)
	assert.Len(t, root.WithHandler("onClick"), 1)
	assert.True(t, root.HasClassMatching(regexp.MustCompile(`^shadow`)))
	assert.False(t, root.HasClassMatching(regexp.MustCompile(`^bg-`)))
}

func TestNode_WalkStops(t *testing.T) {
	root := sampleTree()
	visited := 0
	root.Walk(func(n *Node) bool {
		visited++
		return n.Type != "h2"
	})
	assert.Equal(t, 2, visited)
}

func TestNode_NilSafe(t *testing.T) {
	var n *Node
	assert.Equal(t, "", n.TextContent())
	assert.Empty(t, n.ByTag("div"))
	assert.Equal(t, "", n.ClassName())
}
