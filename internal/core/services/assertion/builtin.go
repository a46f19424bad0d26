package assertion

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gitlab.com/codegrader.net/internal/dom"
	"gitlab.com/codegrader.net/internal/domain"
)

var (
	digitPattern = regexp.MustCompile(`-?\d+`)
	cardClass    = regexp.MustCompile(`(?i)card`)
	titleClass   = regexp.MustCompile(`(?i)title|header|heading`)
)

var builtinSuites = map[string]func() []Assertion{
	"counter":   counterSuite,
	"todo-list": todoListSuite,
	"form":      formSuite,
	"navbar":    navbarSuite,
	"card":      cardSuite,
	"modal":     modalSuite,
	"toggle":    toggleSuite,
	"accordion": accordionSuite,
}

// Builtin returns the registered suite for challengeID
func Builtin(challengeID string) ([]Assertion, bool) {
	suite, ok := builtinSuites[strings.ToLower(strings.TrimSpace(challengeID))]
	if !ok {
		return nil, false
	}
	return suite(), true
}

func BuiltinIDs() []string {
	ids := make([]string, 0, len(builtinSuites))
	for id := range builtinSuites {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func script(description, code string) Assertion {
	return NewScript(description, code, domain.Limits{})
}

func hasAny(nodes []*dom.Node, what string) error {
	if len(nodes) == 0 {
		return fmt.Errorf("no %s found", what)
	}
	return nil
}

func clickable(root *dom.Node) []*dom.Node {
	return root.WithHandler("onClick")
}

func hasText(n *dom.Node) bool {
	return strings.TrimSpace(n.TextContent()) != "" || n.StringProp("aria-label") != ""
}

func counterSuite() []Assertion {
	return []Assertion{
		NewPredicate("displays the current count", func(root *dom.Node) error {
			if !digitPattern.MatchString(root.TextContent()) {
				return errors.New("no number is rendered")
			}
			return nil
		}),
		NewPredicate("has controls to change the count", func(root *dom.Node) error {
			return hasAny(clickable(root), "clickable control")
		}),
		script("clicking a control changes the count", `
const read = () => (document.body.textContent.match(/-?\d+/) || [null])[0];
const before = read();
fireEvent.click(screen.getAllByRole('button')[0]);
expect(read()).not.toBe(before);
`),
	}
}

func todoListSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders an input for new items", func(root *dom.Node) error {
			return hasAny(root.ByRole("textbox"), "text input")
		}),
		NewPredicate("renders a list", func(root *dom.Node) error {
			return hasAny(root.ByRole("list"), "list element")
		}),
		NewPredicate("has a control to add items", func(root *dom.Node) error {
			if len(clickable(root)) > 0 || len(root.WithHandler("onSubmit")) > 0 {
				return nil
			}
			return errors.New("no add button or form submit handler")
		}),
		script("adding an item shows it in the list", `
const input = screen.getAllByRole('textbox')[0];
fireEvent.change(input, { target: { value: 'Buy milk' } });
const button = screen.queryAllByRole('button')[0];
if (button) {
  fireEvent.click(button);
} else if (input.closest('form')) {
  fireEvent.submit(input.closest('form'));
}
expect(screen.queryAllByText(/Buy milk/).length).toBeGreaterThan(0);
`),
	}
}

func formSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders a form element", func(root *dom.Node) error {
			return hasAny(root.ByTag("form"), "form element")
		}),
		NewPredicate("has input fields", func(root *dom.Node) error {
			return hasAny(root.ByTag("input", "textarea", "select"), "input field")
		}),
		NewPredicate("has a submit control", func(root *dom.Node) error {
			return hasAny(root.ByRole("button"), "submit button")
		}),
		NewPredicate("handles submission", func(root *dom.Node) error {
			for _, f := range root.ByTag("form") {
				if f.HasHandler("onSubmit") {
					return nil
				}
			}
			for _, b := range root.ByRole("button") {
				if b.HasHandler("onClick") {
					return nil
				}
			}
			return errors.New("form has no submit handler")
		}),
	}
}

func navbarSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders a navigation landmark", func(root *dom.Node) error {
			return hasAny(root.ByRole("navigation"), "nav element")
		}),
		NewPredicate("contains links", func(root *dom.Node) error {
			return hasAny(root.ByRole("link"), "link")
		}),
		NewPredicate("every link has text", func(root *dom.Node) error {
			for _, l := range root.ByRole("link") {
				if !hasText(l) {
					return fmt.Errorf("link to %q has no text", l.StringProp("href"))
				}
			}
			return nil
		}),
	}
}

func cardSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders content", func(root *dom.Node) error {
			if strings.TrimSpace(root.TextContent()) == "" {
				return errors.New("rendered output is empty")
			}
			return nil
		}),
		NewPredicate("has a title", func(root *dom.Node) error {
			if len(root.ByRole("heading")) > 0 {
				return nil
			}
			return hasAny(root.Find(func(n *dom.Node) bool { return n.HasClassMatching(titleClass) }), "heading or title")
		}),
		NewPredicate("uses a card class name", func(root *dom.Node) error {
			return hasAny(root.Find(func(n *dom.Node) bool { return n.HasClassMatching(cardClass) }), "element with a card class")
		}),
	}
}

func modalSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders a trigger control", func(root *dom.Node) error {
			return hasAny(clickable(root), "clickable control")
		}),
		script("opening the modal shows a dialog", `
const dialogs = () => screen.queryAllByRole('dialog').length + document.querySelectorAll('.modal').length;
if (dialogs() === 0) fireEvent.click(screen.getAllByRole('button')[0]);
expect(dialogs()).toBeGreaterThan(0);
`),
	}
}

func toggleSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders a toggle control", func(root *dom.Node) error {
			if len(root.ByRole("checkbox")) > 0 {
				return nil
			}
			return hasAny(clickable(root), "button or checkbox")
		}),
		script("toggling changes the rendered output", `
const control = screen.queryAllByRole('checkbox')[0] || screen.getAllByRole('button')[0];
const before = document.body.innerHTML;
fireEvent.click(control);
expect(document.body.innerHTML).not.toBe(before);
`),
	}
}

func accordionSuite() []Assertion {
	return []Assertion{
		NewPredicate("renders section headers", func(root *dom.Node) error {
			return hasAny(clickable(root), "clickable section header")
		}),
		script("expanding a section reveals content", `
const before = document.body.textContent;
fireEvent.click(screen.getAllByRole('button')[0]);
expect(document.body.textContent).not.toBe(before);
`),
	}
}
