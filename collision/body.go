package collision

import (
	"github.com/samber/lo"

	"go.viam.com/collisiondistance/spatialmath"
)

// BodyType is the kind of body a geometry belongs to.
type BodyType int

// The kinds of bodies.
const (
	LinkBody BodyType = iota
	AttachedBodyType
	WorldObjectBody
)

// Body identifies the physical entity owning a geometry. Implementations are Link, AttachedBody and WorldObject.
type Body interface {
	// ID is the name used for allowed collision lookups and result keys.
	ID() string
	Type() BodyType
	// OwningLink is the robot link the body moves with, empty for world objects.
	OwningLink() string
	isBody()
}

// Link is a rigid link of the robot.
type Link struct {
	Name string
}

// ID returns the link name.
func (l Link) ID() string { return l.Name }

// Type returns LinkBody.
func (l Link) Type() BodyType { return LinkBody }

// OwningLink returns the link itself.
func (l Link) OwningLink() string { return l.Name }

func (Link) isBody() {}

// AttachedBody is an object rigidly attached to a robot link, such as a grasped part. Contact with its touch
// links is expected and never reported.
type AttachedBody struct {
	Name       string
	Link       string
	TouchLinks []string
}

// ID returns the attached body name.
func (ab AttachedBody) ID() string { return ab.Name }

// Type returns AttachedBodyType.
func (ab AttachedBody) Type() BodyType { return AttachedBodyType }

// OwningLink returns the link the body is attached to.
func (ab AttachedBody) OwningLink() string { return ab.Link }

// Touches returns true if the body may touch the named link.
func (ab AttachedBody) Touches(link string) bool {
	return lo.Contains(ab.TouchLinks, link)
}

func (AttachedBody) isBody() {}

// WorldObject is an obstacle in the environment.
type WorldObject struct {
	Name string
}

// ID returns the object name.
func (w WorldObject) ID() string { return w.Name }

// Type returns WorldObjectBody.
func (w WorldObject) Type() BodyType { return WorldObjectBody }

// OwningLink is empty for world objects.
func (w WorldObject) OwningLink() string { return "" }

func (WorldObject) isBody() {}

// Object is a shape handle produced by the broad phase: one geometry, expressed in the common query frame, together
// with the body owning it.
type Object struct {
	Body     Body
	Geometry spatialmath.Geometry
}

// NewObject pairs a body with one of its geometries.
func NewObject(body Body, g spatialmath.Geometry) *Object {
	return &Object{Body: body, Geometry: g}
}

// SameObject returns true if both shapes belong to the same body.
func (o *Object) SameObject(other *Object) bool {
	return o.Body.Type() == other.Body.Type() && o.Body.ID() == other.Body.ID()
}

// touchAllowed reports whether one object is a link that the other, an attached body, may touch.
func touchAllowed(o1, o2 *Object) bool {
	link, linkOK := o1.Body.(Link)
	attached, attachedOK := o2.Body.(AttachedBody)
	if !linkOK || !attachedOK {
		link, linkOK = o2.Body.(Link)
		attached, attachedOK = o1.Body.(AttachedBody)
	}
	return linkOK && attachedOK && attached.Touches(link.Name)
}
