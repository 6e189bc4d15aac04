package entity

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

type ActionType string

const (
	ActionClick    ActionType = "click"
	ActionTypeText ActionType = "type"
	ActionClear    ActionType = "clear"
	ActionSelect   ActionType = "select"
	ActionCheck    ActionType = "check"
	ActionUncheck  ActionType = "uncheck"
	ActionHover    ActionType = "hover"
	ActionScroll   ActionType = "scroll"
	ActionScrollTo ActionType = "scroll_to_element"
	ActionFocus    ActionType = "focus"
	ActionPressKey ActionType = "press_key"
	ActionWait     ActionType = "wait"
	ActionNavigate ActionType = "navigate"
	ActionBack     ActionType = "back"
	ActionForward  ActionType = "forward"
	ActionRefresh  ActionType = "refresh"
)

// ActionTypes is the full action vocabulary in prompt order.
var ActionTypes = []ActionType{
	ActionClick, ActionTypeText, ActionClear, ActionSelect, ActionCheck, ActionUncheck,
	ActionHover, ActionScroll, ActionScrollTo, ActionFocus, ActionPressKey, ActionWait,
	ActionNavigate, ActionBack, ActionForward, ActionRefresh,
}

// ActionParams is implemented only by the parameter structs in this file,
// one per action type.
type ActionParams interface {
	Type() ActionType
	Validate() error
	sealed()
}

// Targeted is implemented by params that address an element of the current view.
type Targeted interface {
	TargetIndex() int
}

type ClickParams struct {
	Index int `json:"index"`
}

type TypeParams struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type ClearParams struct {
	Index int `json:"index"`
}

type SelectParams struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

type CheckParams struct {
	Index   int  `json:"index"`
	Checked bool `json:"checked"`
}

type HoverParams struct {
	Index int `json:"index"`
}

type ScrollParams struct {
	Direction string `json:"direction"`
	Amount    int    `json:"amount,omitempty"`
}

type ScrollToParams struct {
	Index int `json:"index"`
}

type FocusParams struct {
	Index int `json:"index"`
}

type PressKeyParams struct {
	Key string `json:"key"`
}

type WaitParams struct {
	Ms int `json:"ms"`
}

type NavigateParams struct {
	URL string `json:"url"`
}

type BackParams struct{}

type ForwardParams struct{}

type RefreshParams struct{}

func (ClickParams) Type() ActionType    { return ActionClick }
func (TypeParams) Type() ActionType     { return ActionTypeText }
func (ClearParams) Type() ActionType    { return ActionClear }
func (SelectParams) Type() ActionType   { return ActionSelect }
func (HoverParams) Type() ActionType    { return ActionHover }
func (ScrollParams) Type() ActionType   { return ActionScroll }
func (ScrollToParams) Type() ActionType { return ActionScrollTo }
func (FocusParams) Type() ActionType    { return ActionFocus }
func (PressKeyParams) Type() ActionType { return ActionPressKey }
func (WaitParams) Type() ActionType     { return ActionWait }
func (NavigateParams) Type() ActionType { return ActionNavigate }
func (BackParams) Type() ActionType     { return ActionBack }
func (ForwardParams) Type() ActionType  { return ActionForward }
func (RefreshParams) Type() ActionType  { return ActionRefresh }

func (p CheckParams) Type() ActionType {
	if p.Checked {
		return ActionCheck
	}
	return ActionUncheck
}

func (p ClickParams) TargetIndex() int    { return p.Index }
func (p TypeParams) TargetIndex() int     { return p.Index }
func (p ClearParams) TargetIndex() int    { return p.Index }
func (p SelectParams) TargetIndex() int   { return p.Index }
func (p CheckParams) TargetIndex() int    { return p.Index }
func (p HoverParams) TargetIndex() int    { return p.Index }
func (p ScrollToParams) TargetIndex() int { return p.Index }
func (p FocusParams) TargetIndex() int    { return p.Index }

func validIndex(i int) error {
	if i < 0 {
		return fmt.Errorf("%w: negative element index %d", ErrValidation, i)
	}
	return nil
}

func (p ClickParams) Validate() error    { return validIndex(p.Index) }
func (p ClearParams) Validate() error    { return validIndex(p.Index) }
func (p CheckParams) Validate() error    { return validIndex(p.Index) }
func (p HoverParams) Validate() error    { return validIndex(p.Index) }
func (p ScrollToParams) Validate() error { return validIndex(p.Index) }
func (p FocusParams) Validate() error    { return validIndex(p.Index) }
func (BackParams) Validate() error       { return nil }
func (ForwardParams) Validate() error    { return nil }
func (RefreshParams) Validate() error    { return nil }

func (p TypeParams) Validate() error {
	return validIndex(p.Index)
}

func (p SelectParams) Validate() error {
	if err := validIndex(p.Index); err != nil {
		return err
	}
	if p.Value == "" {
		return fmt.Errorf("%w: select requires a value", ErrValidation)
	}
	return nil
}

func (p ScrollParams) Validate() error {
	switch strings.ToLower(p.Direction) {
	case "up", "down", "top", "bottom":
		return nil
	}
	return fmt.Errorf("%w: unknown scroll direction %q", ErrValidation, p.Direction)
}

func (p PressKeyParams) Validate() error {
	if strings.TrimSpace(p.Key) == "" {
		return fmt.Errorf("%w: press_key requires a key", ErrValidation)
	}
	return nil
}

func (p WaitParams) Validate() error {
	if p.Ms < 0 {
		return fmt.Errorf("%w: negative wait", ErrValidation)
	}
	return nil
}

func (p NavigateParams) Validate() error {
	u, err := url.Parse(p.URL)
	if err != nil || p.URL == "" {
		return fmt.Errorf("%w: invalid url %q", ErrValidation, p.URL)
	}
	if u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file" && u.Scheme != "about" {
		return fmt.Errorf("%w: unsupported url scheme %q", ErrValidation, u.Scheme)
	}
	return nil
}

func (ClickParams) sealed()    {}
func (TypeParams) sealed()     {}
func (ClearParams) sealed()    {}
func (SelectParams) sealed()   {}
func (CheckParams) sealed()    {}
func (HoverParams) sealed()    {}
func (ScrollParams) sealed()   {}
func (ScrollToParams) sealed() {}
func (FocusParams) sealed()    {}
func (PressKeyParams) sealed() {}
func (WaitParams) sealed()     {}
func (NavigateParams) sealed() {}
func (BackParams) sealed()     {}
func (ForwardParams) sealed()  {}
func (RefreshParams) sealed()  {}

// Action is one decided action. It serializes as {"action": ..., "params": ...}.
type Action struct {
	Params ActionParams
}

func NewAction(p ActionParams) Action {
	return Action{Params: p}
}

// WaitAction is the fallback used when no usable decision is available.
func WaitAction(ms int) Action {
	return Action{Params: WaitParams{Ms: ms}}
}

func (a Action) Type() ActionType {
	if a.Params == nil {
		return ""
	}
	return a.Params.Type()
}

func (a Action) String() string {
	data, err := json.Marshal(a.Params)
	if err != nil {
		return string(a.Type())
	}
	return fmt.Sprintf("%s %s", a.Type(), data)
}

func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Action ActionType   `json:"action"`
		Params ActionParams `json:"params"`
	}{a.Type(), a.Params})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Action string          `json:"action"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeAction(raw.Action, raw.Params)
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAction turns an untrusted (type, params) pair into a typed action.
// Unknown types fail with ErrUnknownAction and are never forwarded.
func DecodeAction(actionType string, params json.RawMessage) (Action, error) {
	var (
		p   ActionParams
		err error
	)
	switch ActionType(strings.ToLower(strings.TrimSpace(actionType))) {
	case ActionClick:
		p, err = decodeParams[ClickParams](params)
	case ActionTypeText:
		p, err = decodeParams[TypeParams](params)
	case ActionClear:
		p, err = decodeParams[ClearParams](params)
	case ActionSelect:
		p, err = decodeParams[SelectParams](params)
	case ActionCheck, ActionUncheck:
		var cp CheckParams
		cp, err = decodeParams[CheckParams](params)
		cp.Checked = ActionType(strings.ToLower(strings.TrimSpace(actionType))) == ActionCheck
		p = cp
	case ActionHover:
		p, err = decodeParams[HoverParams](params)
	case ActionScroll:
		p, err = decodeParams[ScrollParams](params)
	case ActionScrollTo:
		p, err = decodeParams[ScrollToParams](params)
	case ActionFocus:
		p, err = decodeParams[FocusParams](params)
	case ActionPressKey:
		p, err = decodeParams[PressKeyParams](params)
	case ActionWait:
		p, err = decodeParams[WaitParams](params)
	case ActionNavigate:
		p, err = decodeParams[NavigateParams](params)
	case ActionBack:
		p = BackParams{}
	case ActionForward:
		p = ForwardParams{}
	case ActionRefresh:
		p = RefreshParams{}
	default:
		return Action{}, fmt.Errorf("%w: %q", ErrUnknownAction, actionType)
	}
	if err != nil {
		return Action{}, fmt.Errorf("%w: malformed params for %s: %v", ErrValidation, actionType, err)
	}
	return Action{Params: p}, nil
}

// decodeParams returns the zero value for empty params.
func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}
	err := json.Unmarshal(raw, &v)
	return v, err
}
