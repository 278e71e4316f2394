package proctor

import (
	"fmt"
	"strings"
)

// ResizeTolerance is the largest outer-size drift, per dimension, that is
// not treated as a resize.
const ResizeTolerance = 5

// Modifier selects which modifier keys a shortcut rule requires.
type Modifier string

const (
	ModifierNone       Modifier = "none"
	ModifierCtrlOrMeta Modifier = "ctrl_or_meta"
	ModifierCtrlShift  Modifier = "ctrl_shift"
)

// ShortcutRule is one row of the blocked keyboard shortcut table.
type ShortcutRule struct {
	Modifier         Modifier `json:"modifier"`
	Keys             []string `json:"keys"`
	OutsideInputOnly bool     `json:"outside_input_only"`
}

// Matches reports whether k triggers the rule.
func (r ShortcutRule) Matches(k KeyPressed) bool {
	switch r.Modifier {
	case ModifierCtrlOrMeta:
		if !k.Ctrl && !k.Meta {
			return false
		}
	case ModifierCtrlShift:
		if !k.Ctrl || !k.Shift {
			return false
		}
	}
	if r.OutsideInputOnly && k.Target.IsInputSurface() {
		return false
	}
	key := strings.ToLower(k.Key)
	for _, candidate := range r.Keys {
		if key == candidate {
			return true
		}
	}
	return false
}

// ShortcutRules is the keyboard policy shared with the client.
var ShortcutRules = []ShortcutRule{
	{Modifier: ModifierCtrlOrMeta, Keys: []string{"c", "x", "t", "n"}},
	{Modifier: ModifierCtrlOrMeta, Keys: []string{"v", "p"}, OutsideInputOnly: true},
	{Modifier: ModifierNone, Keys: []string{"f12"}},
	{Modifier: ModifierCtrlShift, Keys: []string{"i", "c"}},
}

// Policy is what the client needs to prevent default actions synchronously,
// using the same rules the engine evaluates.
type Policy struct {
	Shortcuts              []ShortcutRule `json:"shortcuts"`
	BlockCopy              bool           `json:"block_copy"`
	BlockCut               bool           `json:"block_cut"`
	BlockPasteOutsideInput bool           `json:"block_paste_outside_input"`
	BlockContextMenu       bool           `json:"block_context_menu"`
	ResizeTolerance        int            `json:"resize_tolerance"`
	Disabled               []Category     `json:"disabled,omitempty"`
}

// Verdict is the outcome of evaluating one observation.
// Prevent means the default browser action should be suppressed.
type Verdict struct {
	Signal  *Signal
	Prevent bool
}

// Terminates reports whether the observation produced a signal.
func (v Verdict) Terminates() bool {
	return v.Signal != nil
}

// Engine classifies observations. Each source is independent: a disabled
// source (primitive unavailable on the client) is inactive, the rest keep
// working.
type Engine struct {
	initial  Geometry
	disabled map[Category]bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithDisabled turns off the listed sources.
func WithDisabled(cats ...Category) Option {
	return func(e *Engine) {
		for _, c := range cats {
			e.disabled[c] = true
		}
	}
}

// NewEngine records the window geometry at mount.
func NewEngine(initial Geometry, opts ...Option) *Engine {
	e := &Engine{
		initial:  initial,
		disabled: make(map[Category]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enabled reports whether source c is active.
func (e *Engine) Enabled(c Category) bool {
	return !e.disabled[c]
}

// Policy describes the prevention rules for the client.
func (e *Engine) Policy() Policy {
	p := Policy{
		Shortcuts:              ShortcutRules,
		BlockCopy:              e.Enabled(CategoryClipboard),
		BlockCut:               e.Enabled(CategoryClipboard),
		BlockPasteOutsideInput: e.Enabled(CategoryClipboard),
		BlockContextMenu:       e.Enabled(CategoryContextMenu),
		ResizeTolerance:        ResizeTolerance,
	}
	if !e.Enabled(CategoryKeyboard) {
		p.Shortcuts = nil
	}
	for _, c := range Categories {
		if e.disabled[c] {
			p.Disabled = append(p.Disabled, c)
		}
	}
	return p
}

// Evaluate classifies a single observation.
func (e *Engine) Evaluate(obs Observation) Verdict {
	if obs == nil || !e.Enabled(obs.Source()) {
		return Verdict{}
	}

	switch o := obs.(type) {
	case VisibilityChanged:
		if o.Hidden {
			return terminate(CategoryVisibility, "document hidden", false)
		}
	case FocusLost:
		return terminate(CategoryFocus, "window lost focus", false)
	case ClipboardUsed:
		return e.evaluateClipboard(o)
	case ContextMenuOpened:
		return terminate(CategoryContextMenu, "context menu opened", true)
	case KeyPressed:
		for _, rule := range ShortcutRules {
			if rule.Matches(o) {
				return terminate(CategoryKeyboard, "blocked shortcut "+describeKey(o), true)
			}
		}
	case WindowResized:
		return e.evaluateGeometry(o.Geometry)
	case InstanceDuplicated:
		return terminate(CategoryMultiInstance, "second instance detected via "+o.Detector, false)
	}
	return Verdict{}
}

func (e *Engine) evaluateClipboard(o ClipboardUsed) Verdict {
	switch o.Op {
	case ClipboardCopy, ClipboardCut:
		return terminate(CategoryClipboard, string(o.Op)+" intercepted", true)
	case ClipboardPaste:
		if o.Target.IsTextField() {
			return Verdict{}
		}
		return terminate(CategoryClipboard, "paste outside an answer field", true)
	}
	return Verdict{}
}

func (e *Engine) evaluateGeometry(g Geometry) Verdict {
	if g.Width == 0 && g.Height == 0 {
		return terminate(CategoryGeometry, "window minimized", false)
	}
	dw := abs(g.Width - e.initial.Width)
	dh := abs(g.Height - e.initial.Height)
	if dw > ResizeTolerance || dh > ResizeTolerance {
		return terminate(CategoryGeometry,
			fmt.Sprintf("window resized from %dx%d to %dx%d", e.initial.Width, e.initial.Height, g.Width, g.Height),
			false)
	}
	return Verdict{}
}

func terminate(c Category, reason string, prevent bool) Verdict {
	return Verdict{Signal: &Signal{Category: c, Reason: reason}, Prevent: prevent}
}

func describeKey(k KeyPressed) string {
	var parts []string
	if k.Ctrl {
		parts = append(parts, "ctrl")
	}
	if k.Meta {
		parts = append(parts, "meta")
	}
	if k.Shift {
		parts = append(parts, "shift")
	}
	return strings.Join(append(parts, strings.ToLower(k.Key)), "+")
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
