package mapview

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
)

// Mode is the interaction state of the drawing toolbar.
type Mode string

const (
	Idle     Mode = "idle"
	Drawing  Mode = "drawing"
	Editing  Mode = "editing"
	Deleting Mode = "deleting"
)

// Tool is the shape tool used while drawing.
type Tool string

const (
	ToolPolygon   Tool = "polygon"
	ToolRectangle Tool = "rectangle"
)

// minPolygonVertices is the smallest ring the polygon tool will finish.
const minPolygonVertices = 3

// Controller runs the draw/edit/delete state machine on top of a Surface.
// Commits fire draw events on the surface; the listeners installed by the
// controller read the resulting geometry back from the layer and emit it.
type Controller struct {
	mu      sync.Mutex
	surface *Surface
	layer   *Layer
	emitter *Emitter

	mode     Mode
	released bool
	tool     Tool
	draft    []domain.LatLng
	before   map[string][]domain.LatLng
	edited   map[string]bool
	marked   map[string]bool

	listenerIDs map[MapEvent]int
}

// NewController wires the drawing tools onto the surface.
func NewController(s *Surface, e *Emitter) (*Controller, error) {
	c := &Controller{
		surface:     s,
		layer:       s.Layer(),
		emitter:     e,
		mode:        Idle,
		listenerIDs: make(map[MapEvent]int),
	}
	handlers := map[MapEvent]Listener{
		EventDrawCreated: c.onCreated,
		EventDrawEdited:  c.onEdited,
		EventDrawDeleted: c.onDeleted,
	}
	for _, ev := range []MapEvent{EventDrawCreated, EventDrawEdited, EventDrawDeleted} {
		id, err := s.On(ev, handlers[ev])
		if err != nil {
			c.Detach()
			return nil, err
		}
		c.listenerIDs[ev] = id
	}
	return c, nil
}

// Detach removes the controller's listeners from the surface. Every
// gesture after it fails with ErrReleased.
func (c *Controller) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ev, id := range c.listenerIDs {
		c.surface.Off(ev, id)
		delete(c.listenerIDs, ev)
	}
	c.reset()
	c.released = true
}

// Mode returns the current interaction state.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Draft returns the vertices placed so far in the current draw.
func (c *Controller) Draft() []domain.LatLng {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneRing(c.draft)
}

// StartDraw activates a drawing tool.
func (c *Controller) StartDraw(tool Tool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Idle); err != nil {
		return err
	}
	if tool != ToolPolygon && tool != ToolRectangle {
		return fmt.Errorf("%w: unknown tool %q", ErrInvalidTransition, tool)
	}
	c.mode = Drawing
	c.tool = tool
	c.draft = nil
	return nil
}

// AddVertex places a vertex (or a rectangle corner) in the current draw.
// Non-finite coordinates are ignored.
func (c *Controller) AddVertex(p domain.LatLng) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Drawing); err != nil {
		return err
	}
	if !finitePoint(p) {
		return nil
	}
	if c.tool == ToolRectangle && len(c.draft) == 2 {
		c.draft[1] = p
		return nil
	}
	c.draft = append(c.draft, p)
	return nil
}

// FinishDraw finalizes the shape being drawn. A shape the tool cannot
// close is dropped like a cancelled draw. The returned id is empty in that case.
func (c *Controller) FinishDraw() (string, error) {
	c.mu.Lock()
	if err := c.expect(Drawing); err != nil {
		c.mu.Unlock()
		return "", err
	}
	ring := c.draft
	if c.tool == ToolRectangle {
		ring = rectangle(c.draft)
	}
	c.reset()
	if len(ring) < minPolygonVertices {
		c.mu.Unlock()
		return "", nil
	}
	id := c.layer.Add(ring)
	c.mu.Unlock()

	c.surface.Fire(EventDrawCreated, id)
	return id, nil
}

// CancelDraw abandons the current draw without any event.
func (c *Controller) CancelDraw() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Drawing); err != nil {
		return err
	}
	c.reset()
	return nil
}

// CommitCreated accepts a shape finished by an external drawing tool.
// The geometry may be flat or nested one level and is passed through with
// malformed vertices dropped. Nothing is added when no vertex survives.
func (c *Controller) CommitCreated(geometry any) (string, error) {
	c.mu.Lock()
	if err := c.expect(Idle, Drawing); err != nil {
		c.mu.Unlock()
		return "", err
	}
	c.reset()
	ring := geospatial.FlattenRings(geometry)
	if len(ring) == 0 {
		c.mu.Unlock()
		return "", nil
	}
	id := c.layer.Add(ring)
	c.mu.Unlock()

	c.surface.Fire(EventDrawCreated, id)
	return id, nil
}

// StartEdit activates the edit tool on every shape.
func (c *Controller) StartEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Idle); err != nil {
		return err
	}
	c.mode = Editing
	c.before = make(map[string][]domain.LatLng)
	for _, s := range c.layer.Shapes() {
		c.before[s.ID] = s.Ring
	}
	c.edited = make(map[string]bool)
	return nil
}

// MoveVertex drags vertex index of a shape to p.
func (c *Controller) MoveVertex(shapeID string, index int, p domain.LatLng) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Editing); err != nil {
		return err
	}
	ring, ok := c.layer.Get(shapeID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, shapeID)
	}
	if index < 0 || index >= len(ring) {
		return fmt.Errorf("%w: %d of %d on %s", ErrVertexOutOfRange, index, len(ring), shapeID)
	}
	if !finitePoint(p) {
		return nil
	}
	ring[index] = p
	c.layer.Replace(shapeID, ring)
	c.edited[shapeID] = true
	return nil
}

// CommitEdit saves the edit session and emits one event per edited shape.
func (c *Controller) CommitEdit() error {
	c.mu.Lock()
	if err := c.expect(Editing); err != nil {
		c.mu.Unlock()
		return err
	}
	ids := c.inLayerOrder(c.edited)
	c.reset()
	c.mu.Unlock()

	c.fireEdited(ids)
	return nil
}

// CommitEditPayload saves geometry reported by an external edit tool,
// keyed by shape id. Each geometry may nest its rings one level deep;
// the outer ring is kept and malformed vertices are dropped. Shapes that
// are unknown or keep no vertex are skipped.
func (c *Controller) CommitEditPayload(layers map[string]any) error {
	c.mu.Lock()
	if err := c.expect(Idle, Editing); err != nil {
		c.mu.Unlock()
		return err
	}
	edited := make(map[string]bool, len(layers))
	for id, geometry := range layers {
		ring := geospatial.FlattenRings(geometry)
		if len(ring) == 0 {
			continue
		}
		if c.layer.Replace(id, ring) {
			edited[id] = true
		}
	}
	ids := c.inLayerOrder(edited)
	c.reset()
	c.mu.Unlock()

	c.fireEdited(ids)
	return nil
}

// CancelEdit restores the geometry from before StartEdit.
func (c *Controller) CancelEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Editing); err != nil {
		return err
	}
	c.restore()
	c.reset()
	return nil
}

func (c *Controller) restore() {
	for id, ring := range c.before {
		c.layer.Replace(id, ring)
	}
}

// StartDelete activates the delete tool.
func (c *Controller) StartDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Idle); err != nil {
		return err
	}
	c.mode = Deleting
	c.marked = make(map[string]bool)
	return nil
}

// MarkDeleted removes a shape from the map pending commit.
func (c *Controller) MarkDeleted(shapeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Deleting); err != nil {
		return err
	}
	if _, ok := c.layer.Get(shapeID); !ok {
		return fmt.Errorf("%w: %s", ErrShapeNotFound, shapeID)
	}
	c.marked[shapeID] = true
	return nil
}

// CommitDelete removes the marked shapes and signals a cleared boundary once.
func (c *Controller) CommitDelete() error {
	c.mu.Lock()
	if err := c.expect(Deleting); err != nil {
		c.mu.Unlock()
		return err
	}
	ids := c.removeAll(c.inLayerOrder(c.marked))
	c.reset()
	c.mu.Unlock()

	c.fireDeleted(ids)
	return nil
}

// CommitDeletePayload removes shapes reported by an external delete tool.
func (c *Controller) CommitDeletePayload(shapeIDs []string) error {
	c.mu.Lock()
	if err := c.expect(Idle, Deleting); err != nil {
		c.mu.Unlock()
		return err
	}
	ids := c.removeAll(shapeIDs)
	c.reset()
	c.mu.Unlock()

	c.fireDeleted(ids)
	return nil
}

// CancelDelete keeps every shape.
func (c *Controller) CancelDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.expect(Deleting); err != nil {
		return err
	}
	c.reset()
	return nil
}

// Cancel abandons whatever gesture is in progress. It is a no-op when idle.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return ErrReleased
	}
	if c.mode == Editing {
		c.restore()
	}
	c.reset()
	return nil
}

func (c *Controller) onCreated(payload any) {
	id, ok := payload.(string)
	if !ok {
		return
	}
	ring, ok := c.layer.Get(id)
	if !ok {
		return
	}
	c.emitter.Emit(Event{Kind: domain.BoundaryCreated, Vertices: geospatial.NormalizePoints(ring)})
}

func (c *Controller) onEdited(payload any) {
	ids, ok := payload.([]string)
	if !ok {
		return
	}
	for _, id := range ids {
		rings, ok := c.layer.LatLngs(id)
		if !ok {
			continue
		}
		ring := geospatial.FlattenRings(rings)
		if len(ring) == 0 {
			continue
		}
		c.emitter.Emit(Event{Kind: domain.BoundaryEdited, Vertices: ring})
	}
}

func (c *Controller) onDeleted(payload any) {
	ids, ok := payload.([]string)
	if !ok || len(ids) == 0 {
		return
	}
	c.emitter.Emit(Event{Kind: domain.BoundaryCleared, Vertices: []domain.LatLng{}})
}

func (c *Controller) fireEdited(ids []string) {
	if len(ids) == 0 {
		return
	}
	c.surface.Fire(EventDrawEdited, ids)
}

func (c *Controller) fireDeleted(ids []string) {
	if len(ids) == 0 {
		return
	}
	c.surface.Fire(EventDrawDeleted, ids)
}

func (c *Controller) removeAll(ids []string) []string {
	var removed []string
	for _, id := range ids {
		if c.layer.Remove(id) {
			removed = append(removed, id)
		}
	}
	return removed
}

func (c *Controller) inLayerOrder(set map[string]bool) []string {
	var ids []string
	for _, id := range c.layer.IDs() {
		if set[id] {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Controller) expect(modes ...Mode) error {
	if c.released {
		return ErrReleased
	}
	if slices.Contains(modes, c.mode) {
		return nil
	}
	return fmt.Errorf("%w: %s, want %v", ErrInvalidTransition, c.mode, modes)
}

func (c *Controller) reset() {
	c.mode = Idle
	c.tool = ""
	c.draft = nil
	c.before = nil
	c.edited = nil
	c.marked = nil
}

// rectangle turns two opposite corners into a SW, NW, NE, SE ring.
// Degenerate rectangles yield nil.
func rectangle(corners []domain.LatLng) []domain.LatLng {
	if len(corners) != 2 {
		return nil
	}
	a, b := corners[0], corners[1]
	minLat, maxLat := math.Min(a.Lat(), b.Lat()), math.Max(a.Lat(), b.Lat())
	minLon, maxLon := math.Min(a.Lon(), b.Lon()), math.Max(a.Lon(), b.Lon())
	if minLat == maxLat || minLon == maxLon {
		return nil
	}
	return []domain.LatLng{
		{minLat, minLon},
		{maxLat, minLon},
		{maxLat, maxLon},
		{minLat, maxLon},
	}
}

func finitePoint(p domain.LatLng) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}
