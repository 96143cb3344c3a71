// Package referenceframe defines the kinematic model of a robot: its links, the joints connecting them, the planning
// groups defined over them and the link pairs that never need collision checking.
package referenceframe

import (
	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/collisiondistance/spatialmath"
)

// JointType describes how a joint moves its child link relative to its parent.
type JointType string

// The set of supported joint types.
const (
	FixedJoint      = JointType("fixed")
	RevoluteJoint   = JointType("revolute")
	ContinuousJoint = JointType("continuous")
	PrismaticJoint  = JointType("prismatic")
)

// Link is a rigid body of the model. Its geometries are expressed in the link frame.
type Link struct {
	Name       string
	Geometries []spatialmath.Geometry

	parentJoint string
	childJoints []string
}

// HasGeometry returns true if the link carries at least one collision geometry.
func (l *Link) HasGeometry() bool {
	return len(l.Geometries) > 0
}

// ParentJoint returns the name of the joint whose child is this link, empty for the root link.
func (l *Link) ParentJoint() string {
	return l.parentJoint
}

// Joint connects a parent link to a child link. Origin is the pose of the child link frame relative to the parent link
// frame when the joint input is zero.
type Joint struct {
	Name   string
	Type   JointType
	Parent string
	Child  string
	Origin spatialmath.Pose
	Axis   r3.Vector
	Min    float64
	Max    float64
}

// Group is a named set of links, typically those moved by a planning group's joints.
type Group struct {
	Name  string
	Links []string
}

// CollisionPair is a pair of links that never need to be collision checked against one another.
type CollisionPair struct {
	Link1  string
	Link2  string
	Reason string
}

// FixedChild is a link attached to its parent by a fixed joint.
type FixedChild struct {
	Link string
	// Transform is the pose of the child link relative to its parent.
	Transform spatialmath.Pose
}

// Model is the kinematic tree of a robot.
type Model struct {
	name       string
	links      map[string]*Link
	linkOrder  []string
	joints     map[string]*Joint
	jointOrder []string
	groups     map[string]*Group
	groupOrder []string
	disabled   []CollisionPair
}

// NewModel returns an empty model with the given name.
func NewModel(name string) *Model {
	return &Model{
		name:   name,
		links:  map[string]*Link{},
		joints: map[string]*Joint{},
		groups: map[string]*Group{},
	}
}

// Name returns the name of the model.
func (m *Model) Name() string {
	return m.name
}

// AddLink adds a link carrying the given geometries, expressed in the link frame.
func (m *Model) AddLink(name string, geometries ...spatialmath.Geometry) error {
	if _, ok := m.links[name]; ok {
		return NewDuplicateNameError("link", name)
	}
	for _, g := range geometries {
		if g.Label() == "" {
			g.SetLabel(name)
		}
	}
	m.links[name] = &Link{Name: name, Geometries: geometries}
	m.linkOrder = append(m.linkOrder, name)
	return nil
}

// AddJoint connects two links already in the model.
func (m *Model) AddJoint(j Joint) error {
	if _, ok := m.joints[j.Name]; ok {
		return NewDuplicateNameError("joint", j.Name)
	}
	parent, ok := m.links[j.Parent]
	if !ok {
		return NewLinkNotFoundError(j.Parent)
	}
	child, ok := m.links[j.Child]
	if !ok {
		return NewLinkNotFoundError(j.Child)
	}
	if child.parentJoint != "" {
		return NewMultipleParentsError(j.Child)
	}
	switch j.Type {
	case FixedJoint, RevoluteJoint, ContinuousJoint, PrismaticJoint:
	default:
		return NewUnsupportedJointTypeError(string(j.Type))
	}
	if j.Origin == nil {
		j.Origin = spatialmath.NewZeroPose()
	}
	if j.Type != FixedJoint {
		if j.Axis.Norm2() == 0 {
			j.Axis = r3.Vector{X: 1}
		}
		j.Axis = j.Axis.Normalize()
	}

	joint := j
	m.joints[j.Name] = &joint
	m.jointOrder = append(m.jointOrder, j.Name)
	child.parentJoint = j.Name
	parent.childJoints = append(parent.childJoints, j.Name)
	return nil
}

// AddGroup defines a named group over links already in the model.
func (m *Model) AddGroup(name string, links []string) error {
	if _, ok := m.groups[name]; ok {
		return NewDuplicateNameError("group", name)
	}
	for _, l := range links {
		if _, ok := m.links[l]; !ok {
			return NewLinkNotFoundError(l)
		}
	}
	m.groups[name] = &Group{Name: name, Links: lo.Uniq(links)}
	m.groupOrder = append(m.groupOrder, name)
	return nil
}

// DisableCollision records that the two links never need to be collision checked.
func (m *Model) DisableCollision(link1, link2, reason string) error {
	var err error
	for _, l := range []string{link1, link2} {
		if _, ok := m.links[l]; !ok {
			err = multierr.Append(err, NewLinkNotFoundError(l))
		}
	}
	if err != nil {
		return err
	}
	m.disabled = append(m.disabled, CollisionPair{Link1: link1, Link2: link2, Reason: reason})
	return nil
}

// Validate checks that the links form a single tree.
func (m *Model) Validate() error {
	roots := lo.Filter(m.linkOrder, func(name string, _ int) bool { return m.links[name].parentJoint == "" })
	if len(roots) == 0 {
		return ErrNoRootLink
	}
	var err error
	for _, extra := range roots[1:] {
		err = multierr.Append(err, NewDisconnectedLinkError(extra))
	}
	return err
}

// RootLink returns the name of the first link without a parent joint.
func (m *Model) RootLink() string {
	for _, name := range m.linkOrder {
		if m.links[name].parentJoint == "" {
			return name
		}
	}
	return ""
}

// Links returns the names of every link, in the order they were added.
func (m *Model) Links() []string {
	return append([]string{}, m.linkOrder...)
}

// Link returns the link with the given name.
func (m *Model) Link(name string) (*Link, error) {
	l, ok := m.links[name]
	if !ok {
		return nil, NewLinkNotFoundError(name)
	}
	return l, nil
}

// LinksWithCollisionGeometry returns the names of the links carrying at least one geometry, in model order.
func (m *Model) LinksWithCollisionGeometry() []string {
	return lo.Filter(m.linkOrder, func(name string, _ int) bool { return m.links[name].HasGeometry() })
}

// Joints returns the names of every joint, in the order they were added.
func (m *Model) Joints() []string {
	return append([]string{}, m.jointOrder...)
}

// Joint returns the joint with the given name.
func (m *Model) Joint(name string) (*Joint, error) {
	j, ok := m.joints[name]
	if !ok {
		return nil, NewJointNotFoundError(name)
	}
	return j, nil
}

// ChildLinks returns the links directly attached below the given link.
func (m *Model) ChildLinks(link string) []string {
	l, ok := m.links[link]
	if !ok {
		return nil
	}
	return lo.Map(l.childJoints, func(j string, _ int) string { return m.joints[j].Child })
}

// FixedChildren returns the links attached to the given link by fixed joints, with their transforms relative to it.
func (m *Model) FixedChildren(link string) []FixedChild {
	l, ok := m.links[link]
	if !ok {
		return nil
	}
	children := []FixedChild{}
	for _, jName := range l.childJoints {
		j := m.joints[jName]
		if j.Type == FixedJoint {
			children = append(children, FixedChild{Link: j.Child, Transform: j.Origin})
		}
	}
	return children
}

// Groups returns the names of every group, in the order they were defined.
func (m *Model) Groups() []string {
	return append([]string{}, m.groupOrder...)
}

// Group returns the group with the given name.
func (m *Model) Group(name string) (*Group, error) {
	g, ok := m.groups[name]
	if !ok {
		return nil, NewGroupNotFoundError(name)
	}
	return g, nil
}

// UpdatedLinksWithGeometry returns the links whose world pose changes when the group moves and that carry geometry:
// the group's links and every link below them.
func (m *Model) UpdatedLinksWithGeometry(group string) ([]string, error) {
	g, err := m.Group(group)
	if err != nil {
		return nil, err
	}
	updated := []string{}
	visited := map[string]bool{}
	stack := make([]string, 0, len(g.Links))
	for i := len(g.Links) - 1; i >= 0; i-- {
		stack = append(stack, g.Links[i])
	}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[name] {
			continue
		}
		visited[name] = true
		if m.links[name].HasGeometry() {
			updated = append(updated, name)
		}
		children := m.ChildLinks(name)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return updated, nil
}

// DisabledCollisions returns the link pairs which never need collision checking.
func (m *Model) DisabledCollisions() []CollisionPair {
	return append([]CollisionPair{}, m.disabled...)
}
