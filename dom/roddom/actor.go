// CLAUDE:SUMMARY Action primitive over rod elements: click, input with clear, select by text or value.
package roddom

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domreplay/dom"
	"github.com/hazyhaar/domreplay/runner"
)

// Actor performs real interactions on resolved live elements.
type Actor struct{}

// NewActor creates the rod-backed action primitive.
func NewActor() *Actor { return &Actor{} }

// Perform executes one step's action against a resolved node. The node must
// come from this package's Provider.
func (a *Actor) Perform(ctx context.Context, n dom.Node, step runner.Step) error {
	rn, ok := n.(*node)
	if !ok {
		return fmt.Errorf("roddom: node is not a live element (%T)", n)
	}
	el := rn.Element().Context(ctx)

	switch step.Action {
	case runner.ActionClick:
		return a.click(el)
	case runner.ActionInput:
		return a.input(el, step.Value)
	case runner.ActionSelect:
		return a.selectOption(el, step.Value)
	default:
		return fmt.Errorf("roddom: unknown action %q", step.Action)
	}
}

func (a *Actor) click(el *rod.Element) error {
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	return nil
}

func (a *Actor) input(el *rod.Element, value string) error {
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	// Select existing content so input replaces rather than appends.
	_ = el.SelectAllText()
	if err := el.Input(value); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

func (a *Actor) selectOption(el *rod.Element, value string) error {
	// Match by visible option text first, falling back to the value attribute.
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err == nil {
		return nil
	}
	sel := fmt.Sprintf(`option[value=%q]`, value)
	if err := el.Select([]string{sel}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("select %q: %w", value, err)
	}
	return nil
}
