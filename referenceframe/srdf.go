package referenceframe

import (
	"encoding/xml"
	"os"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
)

// SRDFConfig represents the supported fields of a Semantic Robot Description Format (SRDF) file: planning groups and
// the link pairs whose collision checking is disabled.
type SRDFConfig struct {
	XMLName           xml.Name           `xml:"robot"`
	Name              string             `xml:"name,attr"`
	Groups            []srdfGroup        `xml:"group"`
	DisableCollisions []disableCollision `xml:"disable_collisions"`
}

type srdfGroup struct {
	Name     string      `xml:"name,attr"`
	Links    []nameRef   `xml:"link"`
	Joints   []nameRef   `xml:"joint"`
	Chains   []srdfChain `xml:"chain"`
	Subgroup []nameRef   `xml:"group"`
}

type nameRef struct {
	Name string `xml:"name,attr"`
}

type srdfChain struct {
	BaseLink string `xml:"base_link,attr"`
	TipLink  string `xml:"tip_link,attr"`
}

type disableCollision struct {
	Link1  string `xml:"link1,attr"`
	Link2  string `xml:"link2,attr"`
	Reason string `xml:"reason,attr"`
}

// ParseSRDFFile reads an SRDF file.
func ParseSRDFFile(path string) (*SRDFConfig, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read SRDF file %q", path)
	}
	cfg, err := ParseSRDF(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse SRDF file %q", path)
	}
	return cfg, nil
}

// ParseSRDF unmarshals SRDF XML.
func ParseSRDF(xmlData []byte) (*SRDFConfig, error) {
	cfg := &SRDFConfig{}
	if err := xml.Unmarshal(xmlData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to convert SRDF data to equivalent SRDFConfig struct")
	}
	return cfg, nil
}

// ApplySRDF adds the groups and disabled collision pairs of an SRDF to the model. Every problem found is reported.
func (m *Model) ApplySRDF(cfg *SRDFConfig) error {
	defined := lo.SliceToMap(cfg.Groups, func(g srdfGroup) (string, srdfGroup) { return g.Name, g })

	var err error
	for _, g := range cfg.Groups {
		links, groupErr := m.resolveGroupLinks(g, defined, map[string]bool{})
		if groupErr != nil {
			err = multierr.Append(err, errors.Wrapf(groupErr, "group %q", g.Name))
			continue
		}
		err = multierr.Append(err, m.AddGroup(g.Name, links))
	}
	for _, dc := range cfg.DisableCollisions {
		err = multierr.Append(err, m.DisableCollision(dc.Link1, dc.Link2, dc.Reason))
	}
	return err
}

func (m *Model) resolveGroupLinks(g srdfGroup, defined map[string]srdfGroup, visiting map[string]bool) ([]string, error) {
	if visiting[g.Name] {
		return nil, errors.Errorf("group %q includes itself", g.Name)
	}
	visiting[g.Name] = true
	defer delete(visiting, g.Name)

	links := []string{}
	for _, l := range g.Links {
		if _, ok := m.links[l.Name]; !ok {
			return nil, NewLinkNotFoundError(l.Name)
		}
		links = append(links, l.Name)
	}
	for _, j := range g.Joints {
		joint, err := m.Joint(j.Name)
		if err != nil {
			return nil, err
		}
		links = append(links, joint.Child)
	}
	for _, c := range g.Chains {
		chain, err := m.chainLinks(c.BaseLink, c.TipLink)
		if err != nil {
			return nil, err
		}
		links = append(links, chain...)
	}
	for _, sub := range g.Subgroup {
		subgroup, ok := defined[sub.Name]
		if !ok {
			return nil, NewGroupNotFoundError(sub.Name)
		}
		subLinks, err := m.resolveGroupLinks(subgroup, defined, visiting)
		if err != nil {
			return nil, err
		}
		links = append(links, subLinks...)
	}
	return lo.Uniq(links), nil
}

// chainLinks returns the links from the child of base down to tip, in order.
func (m *Model) chainLinks(base, tip string) ([]string, error) {
	if _, ok := m.links[base]; !ok {
		return nil, NewLinkNotFoundError(base)
	}
	if _, ok := m.links[tip]; !ok {
		return nil, NewLinkNotFoundError(tip)
	}
	reversed := []string{}
	for current := tip; current != base; {
		reversed = append(reversed, current)
		parentJoint := m.links[current].parentJoint
		if parentJoint == "" {
			return nil, errors.Errorf("link %q is not below link %q", tip, base)
		}
		current = m.joints[parentJoint].Parent
	}
	chain := make([]string, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		chain = append(chain, reversed[i])
	}
	return chain, nil
}
