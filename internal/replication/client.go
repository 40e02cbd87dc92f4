package replication

import (
	"github.com/survgo/server/internal/core/ecs"
	"github.com/survgo/server/internal/core/geom"
	"github.com/survgo/server/internal/world"
)

// Sink receives one serialized update per pass. Send must not block.
type Sink interface {
	Send(data []byte)
}

// Client is one replication slot: the set of objects its peer currently
// knows about plus how to aim its camera. Owned by the Replicator.
type Client struct {
	id   uint64
	sink Sink

	player *world.Player
	follow *world.Player
	camera geom.Vec2
	radius float32

	known map[ecs.EntityID]world.Object
	next  map[ecs.EntityID]world.Object

	fresh      bool // nothing sent yet, or resync pending
	resync     bool
	sentPlayer ecs.EntityID
	failures   int
}

// NewClient creates a spectator slot looking at camera with the given view
// radius. SetPlayer turns it into a player slot.
func NewClient(id uint64, sink Sink, camera geom.Vec2, radius float32) *Client {
	return &Client{
		id:     id,
		sink:   sink,
		camera: camera,
		radius: radius,
		known:  make(map[ecs.EntityID]world.Object, 256),
		next:   make(map[ecs.EntityID]world.Object, 256),
		fresh:  true,
	}
}

func (c *Client) ID() uint64            { return c.id }
func (c *Client) Player() *world.Player { return c.player }
func (c *Client) Failures() int         { return c.failures }
func (c *Client) KnownCount() int       { return len(c.known) }
func (c *Client) Knows(id ecs.EntityID) bool {
	_, ok := c.known[id]
	return ok
}

// SetPlayer binds the slot to the player it controls. nil detaches it.
func (c *Client) SetPlayer(p *world.Player) {
	c.player = p
}

// Follow points the camera at another player while the slot's own player is
// dead or absent, e.g. the killer.
func (c *Client) Follow(p *world.Player) {
	c.follow = p
}

// SetCamera fixes the camera used while no live player is bound and nobody
// is followed.
func (c *Client) SetCamera(pos geom.Vec2, radius float32) {
	c.camera = pos
	c.radius = radius
}

// MarkResync drops everything the client is believed to know. The next
// update carries the resync flag and every visible object in full.
func (c *Client) MarkResync() {
	clear(c.known)
	c.resync = true
	c.fresh = true
}

// view returns the centre and radius of the visibility circle.
func (c *Client) view() (geom.Vec2, float32) {
	f := c.follow
	following := f != nil && f.Live()
	if p := c.player; p != nil && p.Live() && (!p.Dead() || !following) {
		// Dead and not following anyone: the camera stays on the body.
		c.camera = p.Pos()
		return p.Pos(), p.Zoom()
	}
	if following {
		c.camera = f.Pos()
	}
	return c.camera, c.radius
}
