package referenceframe

import (
	"encoding/xml"
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/spatialmath"
	"go.viam.com/collisiondistance/utils"
)

var errGeometryTypeUnsupported = errors.New("unsupported Geometry type")

// URDFConfig represents all supported fields in a Universal Robot Description Format (URDF) file.
type URDFConfig struct {
	XMLName xml.Name    `xml:"robot"`
	Name    string      `xml:"name,attr"`
	Links   []urdfLink  `xml:"link"`
	Joints  []urdfJoint `xml:"joint"`
}

type urdfLink struct {
	XMLName   xml.Name    `xml:"link"`
	Name      string      `xml:"name,attr"`
	Collision []collision `xml:"collision"`
}

type urdfJoint struct {
	XMLName xml.Name `xml:"joint"`
	Name    string   `xml:"name,attr"`
	Type    string   `xml:"type,attr"`
	Parent  frame    `xml:"parent"`
	Child   frame    `xml:"child"`
	Origin  *pose    `xml:"origin,omitempty"`
	Axis    *axis    `xml:"axis,omitempty"`
	Limit   *limit   `xml:"limit,omitempty"`
}

// collision is a struct which details the XML used in a URDF collision geometry.
type collision struct {
	XMLName  xml.Name `xml:"collision"`
	Origin   *pose    `xml:"origin"`
	Geometry struct {
		XMLName xml.Name `xml:"geometry"`
		Box     *box     `xml:"box,omitempty"`
		Sphere  *sphere  `xml:"sphere,omitempty"`
		Capsule *capsule `xml:"capsule,omitempty"`
	} `xml:"geometry"`
}

type box struct {
	XMLName xml.Name `xml:"box"`
	Size    string   `xml:"size,attr"` // "x y z" format, in meters
}

type sphere struct {
	XMLName xml.Name `xml:"sphere"`
	Radius  float64  `xml:"radius,attr"` // in meters
}

// capsule follows the urdfdom extension: length is the straight section between the two cap centers.
type capsule struct {
	XMLName xml.Name `xml:"capsule"`
	Radius  float64  `xml:"radius,attr"` // in meters
	Length  float64  `xml:"length,attr"` // in meters
}

type frame struct {
	Link string `xml:"link,attr"`
}

type limit struct {
	XMLName xml.Name `xml:"limit"`
	Lower   float64  `xml:"lower,attr"` // translation limits are in meters, revolute limits are in radians
	Upper   float64  `xml:"upper,attr"` // translation limits are in meters, revolute limits are in radians
}

type axis struct {
	XMLName xml.Name `xml:"axis"`
	XYZ     string   `xml:"xyz,attr"`
}

type pose struct {
	XMLName xml.Name `xml:"origin"`
	RPY     string   `xml:"rpy,attr"` // Fixed frame angle "r p y" format, in radians
	XYZ     string   `xml:"xyz,attr"` // "x y z" format, in meters
}

// Parse converts the origin to a pose in millimeters. A missing origin is the identity.
func (p *pose) Parse() spatialmath.Pose {
	if p == nil {
		return spatialmath.NewZeroPose()
	}
	xyz := padded(utils.SpaceDelimitedStringToFloatSlice(p.XYZ))
	rpy := padded(utils.SpaceDelimitedStringToFloatSlice(p.RPY))
	return spatialmath.NewPose(
		r3.Vector{X: utils.MetersToMM(xyz[0]), Y: utils.MetersToMM(xyz[1]), Z: utils.MetersToMM(xyz[2])},
		&spatialmath.EulerAngles{Roll: rpy[0], Pitch: rpy[1], Yaw: rpy[2]},
	)
}

func (a *axis) Parse() r3.Vector {
	if a == nil {
		return r3.Vector{X: 1}
	}
	v := padded(utils.SpaceDelimitedStringToFloatSlice(a.XYZ))
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}
}

func padded(v []float64) []float64 {
	for len(v) < 3 {
		v = append(v, 0)
	}
	return v
}

func (c *collision) toGeometry(label string) (spatialmath.Geometry, error) {
	origin := c.Origin.Parse()
	switch {
	case c.Geometry.Box != nil:
		dims := padded(utils.SpaceDelimitedStringToFloatSlice(c.Geometry.Box.Size))
		return spatialmath.NewBox(
			origin,
			r3.Vector{X: utils.MetersToMM(dims[0]), Y: utils.MetersToMM(dims[1]), Z: utils.MetersToMM(dims[2])},
			label,
		)
	case c.Geometry.Sphere != nil:
		return spatialmath.NewSphere(origin, utils.MetersToMM(c.Geometry.Sphere.Radius), label)
	case c.Geometry.Capsule != nil:
		r := utils.MetersToMM(c.Geometry.Capsule.Radius)
		return spatialmath.NewCapsule(origin, r, utils.MetersToMM(c.Geometry.Capsule.Length)+2*r, label)
	default:
		return nil, errGeometryTypeUnsupported
	}
}

// ParseURDFFile reads a URDF file and builds its kinematic model.
func ParseURDFFile(path string) (*Model, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read URDF file %q", path)
	}
	m, err := ParseURDF(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse URDF file %q", path)
	}
	return m, nil
}

// ParseURDF builds a kinematic model from URDF XML. Lengths are converted from meters to millimeters.
func ParseURDF(xmlData []byte) (*Model, error) {
	urdf := &URDFConfig{}
	if err := xml.Unmarshal(xmlData, urdf); err != nil {
		return nil, errors.Wrap(err, "failed to convert URDF data to equivalent URDFConfig struct")
	}

	m := NewModel(urdf.Name)
	for _, linkElem := range urdf.Links {
		geometries := make([]spatialmath.Geometry, 0, len(linkElem.Collision))
		for i := range linkElem.Collision {
			g, err := linkElem.Collision[i].toGeometry(linkElem.Name)
			if err != nil {
				return nil, errors.Wrapf(err, "link %q", linkElem.Name)
			}
			geometries = append(geometries, g)
		}
		if err := m.AddLink(linkElem.Name, geometries...); err != nil {
			return nil, err
		}
	}

	for _, jointElem := range urdf.Joints {
		j := Joint{
			Name:   jointElem.Name,
			Type:   JointType(jointElem.Type),
			Parent: jointElem.Parent.Link,
			Child:  jointElem.Child.Link,
			Origin: jointElem.Origin.Parse(),
		}
		if j.Type != FixedJoint {
			j.Axis = jointElem.Axis.Parse()
		}
		switch j.Type {
		case RevoluteJoint:
			if jointElem.Limit != nil {
				j.Min, j.Max = jointElem.Limit.Lower, jointElem.Limit.Upper
			}
		case PrismaticJoint:
			if jointElem.Limit != nil {
				j.Min, j.Max = utils.MetersToMM(jointElem.Limit.Lower), utils.MetersToMM(jointElem.Limit.Upper)
			}
		case ContinuousJoint:
			j.Min, j.Max = math.Inf(-1), math.Inf(1)
		case FixedJoint:
		}
		if err := m.AddJoint(j); err != nil {
			return nil, errors.Wrapf(err, "joint %q", jointElem.Name)
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
