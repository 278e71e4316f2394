package proctor

import "strings"

// Observation is a raw browser-level event reported by the client.
type Observation interface {
	Source() Category
}

// Target describes the element an event was dispatched to.
type Target struct {
	Tag             string `json:"tag"`
	ContentEditable bool   `json:"content_editable"`
}

// IsTextField reports whether the target is an INPUT or TEXTAREA element.
func (t Target) IsTextField() bool {
	tag := strings.ToUpper(t.Tag)
	return tag == "INPUT" || tag == "TEXTAREA"
}

// IsInputSurface reports whether ordinary typing is expected on the target.
func (t Target) IsInputSurface() bool {
	return t.IsTextField() || t.ContentEditable
}

// Geometry is the outer size of the browser window.
type Geometry struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type VisibilityChanged struct {
	Hidden bool
}

type FocusLost struct{}

// ClipboardOp is one of copy, cut or paste.
type ClipboardOp string

const (
	ClipboardCopy  ClipboardOp = "copy"
	ClipboardCut   ClipboardOp = "cut"
	ClipboardPaste ClipboardOp = "paste"
)

type ClipboardUsed struct {
	Op     ClipboardOp
	Target Target
}

type ContextMenuOpened struct{}

type KeyPressed struct {
	Key    string
	Ctrl   bool
	Meta   bool
	Shift  bool
	Target Target
}

type WindowResized struct {
	Geometry
}

// InstanceDuplicated is raised by an InstanceDetector.
type InstanceDuplicated struct {
	Detector string
}

func (VisibilityChanged) Source() Category  { return CategoryVisibility }
func (FocusLost) Source() Category          { return CategoryFocus }
func (ClipboardUsed) Source() Category      { return CategoryClipboard }
func (ContextMenuOpened) Source() Category  { return CategoryContextMenu }
func (KeyPressed) Source() Category         { return CategoryKeyboard }
func (WindowResized) Source() Category      { return CategoryGeometry }
func (InstanceDuplicated) Source() Category { return CategoryMultiInstance }
