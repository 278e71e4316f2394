package handler

import (
	"encoding/json"
	"fmt"

	"github.com/stemsi/exstem-proctor/internal/proctor"
	ws "github.com/stemsi/exstem-proctor/internal/websocket"
)

// decodeObservation maps a proctoring action onto an engine observation.
// ok is false for actions that are not observations.
func decodeObservation(action ws.Action, raw []byte) (obs proctor.Observation, ok bool, err error) {
	switch action {
	case ws.ActionVisibility:
		var req ws.VisibilityRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, true, err
		}
		return proctor.VisibilityChanged{Hidden: req.Hidden}, true, nil

	case ws.ActionBlur:
		return proctor.FocusLost{}, true, nil

	case ws.ActionClipboard:
		var req ws.ClipboardRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, true, err
		}
		op := proctor.ClipboardOp(req.Op)
		switch op {
		case proctor.ClipboardCopy, proctor.ClipboardCut, proctor.ClipboardPaste:
		default:
			return nil, true, fmt.Errorf("unknown clipboard op %q", req.Op)
		}
		return proctor.ClipboardUsed{Op: op, Target: req.Target}, true, nil

	case ws.ActionContextMenu:
		return proctor.ContextMenuOpened{}, true, nil

	case ws.ActionKeyDown:
		var req ws.KeyDownRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, true, err
		}
		return proctor.KeyPressed{
			Key:    req.Key,
			Ctrl:   req.Ctrl,
			Meta:   req.Meta,
			Shift:  req.Shift,
			Target: req.Target,
		}, true, nil

	case ws.ActionResize:
		var req ws.ResizeRequest
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, true, err
		}
		return proctor.WindowResized{Geometry: proctor.Geometry{Width: req.Width, Height: req.Height}}, true, nil
	}
	return nil, false, nil
}

// disabledCategories lists the browser sources the client declared
// unsupported. Instance detection runs server-side, so the client cannot
// switch it off.
func disabledCategories(hello ws.HelloRequest) []proctor.Category {
	var out []proctor.Category
	for name, supported := range hello.Capabilities {
		if supported {
			continue
		}
		c, err := proctor.ParseCategory(name)
		if err != nil || c == proctor.CategoryMultiInstance {
			continue
		}
		out = append(out, c)
	}
	return out
}
