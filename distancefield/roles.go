package distancefield

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"

	"go.viam.com/collisiondistance/referenceframe"
	"go.viam.com/collisiondistance/spatialmath"
)

// Role is the kinematic role of a collision bearing link.
type Role int

const (
	// Static links are connected to the root by fixed joints only.
	Static Role = iota
	// Active links belong to at least one group.
	Active
	// Dynamic links are every other link.
	Dynamic
)

func (r Role) String() string {
	switch r {
	case Static:
		return "static"
	case Active:
		return "active"
	case Dynamic:
		return "dynamic"
	default:
		return "unknown"
	}
}

// Roles partitions the collision bearing links of a model. Every such link is in exactly one slice.
type Roles struct {
	Static  []string
	Active  []string
	Dynamic []string

	// staticPoses are static link poses relative to the root.
	staticPoses map[string]spatialmath.Pose
}

// ClassifyLinks partitions the model's collision bearing links by role. Static links are found by walking fixed
// joints from the root, Active links are group members in order of first discovery, and Dynamic links are the rest.
// A static link listed in a group stays static.
func ClassifyLinks(model *referenceframe.Model) Roles {
	roles := Roles{staticPoses: map[string]spatialmath.Pose{}}
	hasGeometry := lo.SliceToMap(model.LinksWithCollisionGeometry(), func(l string) (string, bool) { return l, true })

	type visit struct {
		link string
		pose spatialmath.Pose
	}
	root := model.RootLink()
	if root != "" {
		if hasGeometry[root] {
			roles.Static = append(roles.Static, root)
			roles.staticPoses[root] = spatialmath.NewZeroPose()
		}
		considered := map[string]bool{root: true}
		stack := []visit{{link: root, pose: spatialmath.NewZeroPose()}}
		for len(stack) > 0 {
			current := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			children := model.FixedChildren(current.link)
			// pushed in reverse so children are visited in model order
			for i := len(children) - 1; i >= 0; i-- {
				child := children[i]
				if considered[child.Link] {
					continue
				}
				considered[child.Link] = true
				stack = append(stack, visit{link: child.Link, pose: spatialmath.Compose(current.pose, child.Transform)})
			}
			if current.link != root && hasGeometry[current.link] {
				roles.Static = append(roles.Static, current.link)
				roles.staticPoses[current.link] = current.pose
			}
		}
	}

	isStatic := lo.SliceToMap(roles.Static, func(l string) (string, bool) { return l, true })
	for _, name := range model.Groups() {
		group, err := model.Group(name)
		if err != nil {
			continue
		}
		roles.Active = append(roles.Active, lo.Filter(group.Links, func(l string, _ int) bool {
			return hasGeometry[l] && !isStatic[l]
		})...)
	}
	roles.Active = lo.Uniq(roles.Active)

	roles.Dynamic = lo.Filter(model.LinksWithCollisionGeometry(), func(l string, _ int) bool {
		return !isStatic[l] && !lo.Contains(roles.Active, l)
	})
	return roles
}

// Of returns the links with the given role.
func (r Roles) Of(role Role) []string {
	switch role {
	case Static:
		return r.Static
	case Active:
		return r.Active
	case Dynamic:
		return r.Dynamic
	default:
		return nil
	}
}

// RoleOf returns the role of a link and whether it carries collision geometry at all.
func (r Roles) RoleOf(link string) (Role, bool) {
	for _, role := range []Role{Static, Active, Dynamic} {
		if lo.Contains(r.Of(role), link) {
			return role, true
		}
	}
	return 0, false
}

// String prints a table of every classified link.
func (r Roles) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Link", "Role"})
	i := 0
	for _, role := range []Role{Static, Active, Dynamic} {
		for _, link := range r.Of(role) {
			i++
			t.AppendRow([]interface{}{fmt.Sprintf("%d", i), link, role.String()})
		}
	}
	return t.Render()
}
