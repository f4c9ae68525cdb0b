package usecases

import (
	"errors"
	"fmt"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/mapview"
)

// ErrUnknownGesture is returned for a gesture action the editor does not know.
var ErrUnknownGesture = errors.New("unknown gesture")

// Gesture actions accepted by Session.Apply.
const (
	ActionDrawStart    = "draw.start"
	ActionDrawVertex   = "draw.vertex"
	ActionDrawFinish   = "draw.finish"
	ActionDrawCancel   = "draw.cancel"
	ActionDrawCreated  = "draw.created"
	ActionEditStart    = "edit.start"
	ActionEditMove     = "edit.move"
	ActionEditCommit   = "edit.commit"
	ActionEditCancel   = "edit.cancel"
	ActionDeleteStart  = "delete.start"
	ActionDeleteMark   = "delete.mark"
	ActionDeleteCommit = "delete.commit"
	ActionDeleteCancel = "delete.cancel"
	ActionCancel       = "cancel"
)

// Gesture is one user interaction with the boundary editor, as sent by
// clients over the session socket or REST.
type Gesture struct {
	Action   string           `json:"action"`
	Tool     mapview.Tool     `json:"tool,omitempty"`
	Point    *domain.GeoPoint `json:"point,omitempty"`
	ShapeID  string           `json:"shape_id,omitempty"`
	Index    int              `json:"index,omitempty"`
	Geometry any              `json:"geometry,omitempty"`
	Layers   map[string]any   `json:"layers,omitempty"`
	ShapeIDs []string         `json:"shape_ids,omitempty"`
}

// GestureResult reports the editor state after a gesture.
type GestureResult struct {
	Mode    mapview.Mode `json:"mode"`
	ShapeID string       `json:"shape_id,omitempty"`
	Shapes  int          `json:"shapes"`
}

// Apply runs a gesture against the session's editor.
func (s *Session) Apply(g Gesture) (GestureResult, error) {
	c := s.view.Controller()
	var (
		shapeID string
		err     error
	)

	switch g.Action {
	case ActionDrawStart:
		tool := g.Tool
		if tool == "" {
			tool = mapview.ToolPolygon
		}
		err = c.StartDraw(tool)
	case ActionDrawVertex:
		if g.Point == nil {
			return s.result(""), fmt.Errorf("%w: %s needs a point", domain.ErrValidation, g.Action)
		}
		err = c.AddVertex(domain.LatLng{g.Point.Lat, g.Point.Lon})
	case ActionDrawFinish:
		shapeID, err = c.FinishDraw()
	case ActionDrawCancel:
		err = c.CancelDraw()
	case ActionDrawCreated:
		shapeID, err = c.CommitCreated(g.Geometry)
	case ActionEditStart:
		err = c.StartEdit()
	case ActionEditMove:
		if g.Point == nil || g.ShapeID == "" {
			return s.result(""), fmt.Errorf("%w: %s needs shape_id and point", domain.ErrValidation, g.Action)
		}
		err = c.MoveVertex(g.ShapeID, g.Index, domain.LatLng{g.Point.Lat, g.Point.Lon})
	case ActionEditCommit:
		if g.Layers != nil {
			err = c.CommitEditPayload(g.Layers)
		} else {
			err = c.CommitEdit()
		}
	case ActionEditCancel:
		err = c.CancelEdit()
	case ActionDeleteStart:
		err = c.StartDelete()
	case ActionDeleteMark:
		err = c.MarkDeleted(g.ShapeID)
	case ActionDeleteCommit:
		if g.ShapeIDs != nil {
			err = c.CommitDeletePayload(g.ShapeIDs)
		} else {
			err = c.CommitDelete()
		}
	case ActionDeleteCancel:
		err = c.CancelDelete()
	case ActionCancel:
		err = c.Cancel()
	default:
		return s.result(""), fmt.Errorf("%w: %q", ErrUnknownGesture, g.Action)
	}
	return s.result(shapeID), err
}

func (s *Session) result(shapeID string) GestureResult {
	return GestureResult{
		Mode:    s.view.Controller().Mode(),
		ShapeID: shapeID,
		Shapes:  s.view.Surface().Layer().Len(),
	}
}
