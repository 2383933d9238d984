// Package events streams session changes to the map UI as Datastar signals.
package events

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geo311/internal/humastar"
	"github.com/joeblew999/geo311/internal/service"
	"github.com/joeblew999/geo311/internal/session"
)

// Tag marks the SSE operations, which carry no hypermedia links.
const Tag = "events"

// EventHandler pushes the selection, bounds and stats to subscribers.
type EventHandler struct {
	svc *service.CaseService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(svc *service.CaseService) *EventHandler {
	return &EventHandler{svc: svc}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/events", h.Events,
		huma.OperationTags(Tag),
	)
}

// Signals is the signal patch sent for a session.
func Signals(s session.Session) map[string]any {
	return map[string]any{
		"selectedCategory": s.Selection().Category,
		"categorySelected": s.Selection().Active,
		"visibleCount":     len(s.Visible().Features),
		"bounds":           service.BoundsOf(s),
		"stats":            s.Stats(),
	}
}

func (h *EventHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(ctx context.Context, sse humastar.SSE) {
		bus := h.svc.Events()
		if bus == nil {
			return
		}
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		if s, err := h.svc.Session(); err == nil {
			if err := sse.Signals(Signals(s)); err != nil {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				if err := h.push(sse, ev); err != nil {
					return
				}
			}
		}
	}), nil
}

func (h *EventHandler) push(sse humastar.SSE, ev service.Event) error {
	if ev.Action == service.ActionLoadFailed {
		if err := sse.Error(ev.Err); err != nil {
			return err
		}
	} else if s, err := h.svc.Session(); err == nil {
		if err := sse.Signals(Signals(s)); err != nil {
			return err
		}
	}
	return sse.DispatchCustomEvent("session-changed", map[string]any{
		"kind":     ev.Kind,
		"action":   ev.Action,
		"category": ev.Category,
		"cases":    ev.Cases,
		"visible":  ev.Visible,
	})
}
