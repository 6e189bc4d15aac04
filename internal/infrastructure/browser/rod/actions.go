package rod

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"webagent/internal/domain/entity"
)

var namedKeys = map[string]input.Key{
	"enter":      input.Enter,
	"return":     input.Enter,
	"tab":        input.Tab,
	"escape":     input.Escape,
	"esc":        input.Escape,
	"backspace":  input.Backspace,
	"delete":     input.Delete,
	"space":      input.Space,
	"arrowup":    input.ArrowUp,
	"arrowdown":  input.ArrowDown,
	"arrowleft":  input.ArrowLeft,
	"arrowright": input.ArrowRight,
	"home":       input.Home,
	"end":        input.End,
	"pageup":     input.PageUp,
	"pagedown":   input.PageDown,
}

func keyFor(name string) (input.Key, error) {
	if k, ok := namedKeys[strings.ToLower(strings.ReplaceAll(name, " ", ""))]; ok {
		return k, nil
	}
	if r := []rune(name); len(r) == 1 {
		return input.Key(r[0]), nil
	}
	return 0, entity.NewActionError(entity.CategoryValidation, "unsupported key %q", name)
}

// Execute performs one action. Element-targeting actions use the locator the
// distiller resolved; the others ignore it.
func (b *BrowserAdapter) Execute(ctx context.Context, action entity.Action, locator string) (entity.ExecutionOutcome, error) {
	page, err := b.livePage(ctx)
	if err != nil {
		return entity.ExecutionOutcome{}, err
	}

	switch p := action.Params.(type) {
	case entity.NavigateParams:
		before := b.CurrentURL()
		if err := b.Navigate(ctx, p.URL); err != nil {
			return entity.ExecutionOutcome{}, err
		}
		return entity.ExecutionOutcome{Success: true, Before: before, After: b.CurrentURL()}, nil
	case entity.BackParams:
		return b.history(page, page.NavigateBack)
	case entity.ForwardParams:
		return b.history(page, page.NavigateForward)
	case entity.RefreshParams:
		return b.history(page, page.Reload)
	case entity.WaitParams:
		select {
		case <-ctx.Done():
			return entity.ExecutionOutcome{}, ctx.Err()
		case <-time.After(time.Duration(p.Ms) * time.Millisecond):
		}
		return entity.ExecutionOutcome{Success: true}, nil
	case entity.ScrollParams:
		return b.scroll(page, p)
	case entity.PressKeyParams:
		key, err := keyFor(p.Key)
		if err != nil {
			return entity.ExecutionOutcome{}, err
		}
		if err := page.Keyboard.Type(key); err != nil {
			return entity.ExecutionOutcome{}, classify(fmt.Errorf("press %s: %w", p.Key, err), entity.CategoryBackend)
		}
		b.settle(page)
		return entity.ExecutionOutcome{Success: true}, nil
	}

	el, err := b.element(page, locator)
	if err != nil {
		return entity.ExecutionOutcome{}, err
	}

	switch p := action.Params.(type) {
	case entity.ClickParams:
		err = el.Click(proto.InputMouseButtonLeft, 1)
	case entity.HoverParams:
		err = el.Hover()
	case entity.FocusParams:
		err = el.Focus()
	case entity.ScrollToParams:
		err = el.ScrollIntoView()
	case entity.TypeParams:
		return b.fill(page, el, p.Text)
	case entity.ClearParams:
		return b.fill(page, el, "")
	case entity.SelectParams:
		return b.selectOption(page, el, p.Value)
	case entity.CheckParams:
		return b.check(page, el, p.Checked)
	default:
		return entity.ExecutionOutcome{}, entity.NewActionError(entity.CategoryValidation, "unsupported action %s", action.Type())
	}
	if err != nil {
		return entity.ExecutionOutcome{}, classify(fmt.Errorf("%s %s: %w", action.Type(), locator, err), entity.CategoryBackend)
	}
	b.settle(page)
	return entity.ExecutionOutcome{Success: true}, nil
}

func (b *BrowserAdapter) element(page *rod.Page, locator string) (*rod.Element, error) {
	if strings.TrimSpace(locator) == "" {
		return nil, entity.NewActionError(entity.CategoryElementNotFound, "empty locator")
	}
	el, err := page.Timeout(b.timeout).Element(locator)
	if err != nil {
		return nil, &entity.ActionError{Category: entity.CategoryElementNotFound, Err: fmt.Errorf("%s: %w", locator, err)}
	}
	return el.CancelTimeout().Timeout(b.timeout), nil
}

func (b *BrowserAdapter) history(page *rod.Page, move func() error) (entity.ExecutionOutcome, error) {
	before := b.CurrentURL()
	if err := move(); err != nil {
		return entity.ExecutionOutcome{}, classify(err, entity.CategoryNavigation)
	}
	_ = page.Timeout(b.timeout).WaitLoad()
	b.settle(page)
	return entity.ExecutionOutcome{Success: true, Before: before, After: b.CurrentURL()}, nil
}

func (b *BrowserAdapter) scroll(page *rod.Page, p entity.ScrollParams) (entity.ExecutionOutcome, error) {
	amount := p.Amount
	var js string
	switch strings.ToLower(p.Direction) {
	case "down":
		js = fmt.Sprintf(`() => window.scrollBy(0, %d || window.innerHeight)`, amount)
	case "up":
		js = fmt.Sprintf(`() => window.scrollBy(0, -(%d || window.innerHeight))`, amount)
	case "top":
		js = `() => window.scrollTo(0, 0)`
	case "bottom":
		js = `() => window.scrollTo(0, document.body.scrollHeight)`
	default:
		return entity.ExecutionOutcome{}, entity.NewActionError(entity.CategoryValidation, "unknown scroll direction %q", p.Direction)
	}
	if _, err := page.Eval(js); err != nil {
		return entity.ExecutionOutcome{}, classify(fmt.Errorf("scroll: %w", err), entity.CategoryBackend)
	}
	b.settle(page)
	return entity.ExecutionOutcome{Success: true}, nil
}

func (b *BrowserAdapter) fill(page *rod.Page, el *rod.Element, text string) (entity.ExecutionOutcome, error) {
	before := propertyString(el, "value")
	if _, err := el.Eval(`() => { this.value = ''; this.dispatchEvent(new Event('input', { bubbles: true })) }`); err != nil {
		return entity.ExecutionOutcome{}, classify(fmt.Errorf("clear: %w", err), entity.CategoryElementNotInteractable)
	}
	if text != "" {
		if err := el.Input(text); err != nil {
			return entity.ExecutionOutcome{}, classify(fmt.Errorf("input: %w", err), entity.CategoryElementNotInteractable)
		}
	}
	b.settle(page)
	after := propertyString(el, "value")
	return entity.ExecutionOutcome{Success: after == text, Before: before, After: after}, nil
}

func (b *BrowserAdapter) selectOption(page *rod.Page, el *rod.Element, value string) (entity.ExecutionOutcome, error) {
	before := propertyString(el, "value")
	css := fmt.Sprintf(`option[value=%q]`, value)
	if err := el.Select([]string{css}, true, rod.SelectorTypeCSSSector); err != nil {
		if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
			return entity.ExecutionOutcome{}, classify(fmt.Errorf("select %q: %w", value, err), entity.CategoryElementNotFound)
		}
	}
	b.settle(page)
	after := propertyString(el, "value")
	return entity.ExecutionOutcome{Success: true, Before: before, After: after}, nil
}

func (b *BrowserAdapter) check(page *rod.Page, el *rod.Element, want bool) (entity.ExecutionOutcome, error) {
	prop, err := el.Property("checked")
	if err != nil {
		return entity.ExecutionOutcome{}, classify(fmt.Errorf("read checked: %w", err), entity.CategoryBackend)
	}
	if prop.Bool() != want {
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return entity.ExecutionOutcome{}, classify(fmt.Errorf("toggle: %w", err), entity.CategoryBackend)
		}
		b.settle(page)
	}
	now, err := el.Property("checked")
	if err != nil {
		return entity.ExecutionOutcome{}, classify(fmt.Errorf("read checked: %w", err), entity.CategoryBackend)
	}
	return entity.ExecutionOutcome{
		Success: now.Bool() == want,
		Before:  fmt.Sprint(prop.Bool()),
		After:   fmt.Sprint(now.Bool()),
	}, nil
}

func propertyString(el *rod.Element, name string) string {
	v, err := el.Property(name)
	if err != nil || v.Nil() {
		return ""
	}
	return v.Str()
}
