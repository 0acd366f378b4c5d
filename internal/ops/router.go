package ops

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/bus"
	"github.com/dleimonis/guardian-dashboard-ai-sub000/internal/model"
)

// Router is the evacuation routing agent: it handles evacuate/route action
// orders by planning egress corridors out of the affected radius.
type Router struct {
	bus     *bus.Bus
	planned int
}

// NewRouter creates the evacuation routing agent.
func NewRouter(b *bus.Bus) *Router {
	return &Router{bus: b}
}

func (r *Router) Name() string                         { return "router" }
func (r *Router) Initialize(ctx context.Context) error { return nil }
func (r *Router) Process(ctx context.Context) error    { return nil }
func (r *Router) Cleanup() error                       { return nil }

// HandleMessage plans routes for one evacuation order and reports back.
func (r *Router) HandleMessage(ctx context.Context, msg bus.Message) error {
	if msg.Type != bus.MsgExecuteAction {
		return nil
	}
	order, ok := bus.PayloadAs[model.ActionOrder](msg.Payload)
	if !ok {
		return fmt.Errorf("bad execute_action payload from %s", msg.From)
	}

	r.bus.Send(bus.NewMessage(r.Name(), msgSchedulerName, bus.MsgActionUpdate, model.ActionUpdate{
		ActionID: order.ActionID, IncidentID: order.IncidentID, Status: "in_progress",
	}))

	plan := planRoutes(order.Location)
	r.planned++
	r.bus.Publish(bus.EventActionTaken, r.Name(), map[string]any{
		"action": order, "routes": plan,
	})
	log.Printf("[Router] Planned %d evacuation corridors for incident %s", len(plan), order.IncidentID)

	r.bus.Send(bus.NewMessage(r.Name(), msgSchedulerName, bus.MsgActionUpdate, model.ActionUpdate{
		ActionID:   order.ActionID,
		IncidentID: order.IncidentID,
		Status:     "completed",
		Note:       fmt.Sprintf("%d corridors planned", len(plan)),
	}))
	return nil
}

// Route is one egress corridor leading out of the affected radius.
type Route struct {
	Heading  string  `json:"heading"`
	ExitLat  float64 `json:"exitLat"`
	ExitLon  float64 `json:"exitLon"`
	LengthKm float64 `json:"lengthKm"`
}

// planRoutes lays four cardinal egress corridors just beyond the affected
// radius. A safety margin of 20% keeps exit points clear of the edge.
func planRoutes(loc model.Location) []Route {
	radius := loc.Radius
	if radius <= 0 {
		radius = 5
	}
	exitDist := radius * 1.2
	// Rough degrees-per-km at mid latitudes. cos(lat) vanishes at the
	// poles; floor it so exit longitudes stay finite.
	latPerKm := 1.0 / 110.574
	cosLat := math.Abs(math.Cos(loc.Lat * math.Pi / 180))
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonPerKm := 1.0 / (111.320 * cosLat)

	headings := []struct {
		name   string
		dy, dx float64
	}{
		{"north", 1, 0},
		{"south", -1, 0},
		{"east", 0, 1},
		{"west", 0, -1},
	}
	routes := make([]Route, 0, len(headings))
	for _, h := range headings {
		routes = append(routes, Route{
			Heading:  h.name,
			ExitLat:  loc.Lat + h.dy*exitDist*latPerKm,
			ExitLon:  loc.Lon + h.dx*exitDist*lonPerKm,
			LengthKm: exitDist,
		})
	}
	return routes
}
