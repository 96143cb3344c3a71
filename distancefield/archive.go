package distancefield

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/collisiondistance/logging"
	"go.viam.com/collisiondistance/referenceframe"
)

/*
An archive is a zstd compressed little endian stream:

	1 - (archiveHeader) magic, version, header size, metadata mask, the four metadata scalars and record counts.
	2 - GridCount grid records: a gridHeader, the link name, then Dims[0]*Dims[1]*Dims[2] float32 values.
	3 - SphereSetCount sphere records: a sphereHeader, the link name, then Count [4]float64 (x, y, z, radius).

A metadata scalar is only present when its bit is set in the mask.
*/

const (
	archiveVersion = 1
	maxNameLength  = 4096
	maxGridValues  = 1 << 31
)

var archiveMagic = [8]byte{'S', 'D', 'F', 'R', 'O', 'B', 'O', 'T'}

// Bits of archiveHeader.MetadataMask.
const (
	metaVoxelSize uint32 = 1 << iota
	metaBackground
	metaExteriorBand
	metaInteriorBand

	metaAll = metaVoxelSize | metaBackground | metaExteriorBand | metaInteriorBand
)

type archiveHeader struct {
	Magic          [8]byte
	Version        int32
	HeaderSize     int32
	MetadataMask   uint32
	VoxelSize      float64
	Background     float64
	ExteriorBand   float64
	InteriorBand   float64
	GridCount      int32
	SphereSetCount int32
}

type gridHeader struct {
	Role         int32
	NameLength   int32
	VoxelSize    float64
	Background   float64
	ExteriorBand float64
	InteriorBand float64
	Origin       [3]int64
	Dims         [3]int64
}

type sphereHeader struct {
	NameLength int32
	Count      int32
}

type archivedGrid struct {
	role Role
	grid *Grid
}

// archive is the decoded content of an archive file.
type archive struct {
	mask    uint32
	meta    Metadata
	grids   []archivedGrid
	spheres []LinkSpheres
}

// WriteToFile saves every grid, the active sphere sets and the nominal metadata to path.
func (r *CollisionRobot) WriteToFile(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "writing distance field archive %q", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	enc, err := zstd.NewWriter(f)
	if err != nil {
		return errors.Wrapf(err, "writing distance field archive %q", path)
	}
	if err := writeArchive(enc, r.archive()); err != nil {
		return multierr.Combine(errors.Wrapf(err, "writing distance field archive %q", path), enc.Close())
	}
	return errors.Wrapf(enc.Close(), "writing distance field archive %q", path)
}

func (r *CollisionRobot) archive() archive {
	a := archive{mask: metaAll, meta: r.meta}
	for _, role := range []Role{Static, Dynamic, Active} {
		for _, g := range r.grids(role) {
			a.grids = append(a.grids, archivedGrid{role: role, grid: g})
		}
	}
	for i, link := range r.roles.Active {
		a.spheres = append(a.spheres, LinkSpheres{Link: link, Spheres: r.spheres[i]})
	}
	return a
}

// NewCollisionRobotFromFile loads a robot saved by WriteToFile. Every collision bearing link of the model must have
// a grid of the role the model gives it and every active link a sphere set; an archive missing any of them, or any
// metadata scalar, fails as a whole.
func NewCollisionRobotFromFile(
	model *referenceframe.Model,
	path string,
	logger logging.Logger,
	opts ...Option,
) (*CollisionRobot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load distance field archive %q", path)
	}
	//nolint:errcheck
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load distance field archive %q", path)
	}
	defer dec.Close()

	a, err := readArchive(dec)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load distance field archive %q", path)
	}
	if a.mask&metaAll != metaAll {
		return nil, newMissingMetadataError(path, missingMetadata(a.mask))
	}

	r := newCollisionRobot(model, a.meta, logger, opts...)
	if len(a.grids) == 0 && len(model.LinksWithCollisionGeometry()) > 0 {
		return nil, errors.Errorf("unable to load any grids from archive %q", path)
	}
	found := map[Role]map[string]*Grid{Static: {}, Active: {}, Dynamic: {}}
	for _, ag := range a.grids {
		if _, ok := found[ag.role]; !ok {
			return nil, errors.Errorf("archive %q has a grid for link %q with unknown role %d", path, ag.grid.Name(), ag.role)
		}
		found[ag.role][ag.grid.Name()] = ag.grid
	}
	for _, role := range []Role{Static, Active, Dynamic} {
		links := r.roles.Of(role)
		grids := make([]*Grid, len(links))
		for i, link := range links {
			g, ok := found[role][link]
			if !ok {
				return nil, newMissingGridError(path, role, link)
			}
			grids[i] = g
		}
		switch role {
		case Static:
			r.static = grids
		case Active:
			r.active = grids
		default:
			r.dynamic = grids
		}
	}

	sets := map[string][]Sphere{}
	for _, set := range a.spheres {
		sets[set.Link] = set.Spheres
	}
	r.spheres = make([][]Sphere, len(r.roles.Active))
	for i, link := range r.roles.Active {
		spheres, ok := sets[link]
		if !ok {
			return nil, errors.Errorf("archive %q has no sphere set for link %q", path, link)
		}
		r.spheres[i] = spheres
	}
	r.createQueryPlans()
	r.logger.Debugw("loaded distance field archive", "path", path, "grids", len(a.grids), "bytes", r.MemUsage())
	return r, nil
}

func missingMetadata(mask uint32) []string {
	missing := []string{}
	for _, m := range []struct {
		bit  uint32
		name string
	}{
		{metaVoxelSize, "voxel_size"},
		{metaBackground, "background"},
		{metaExteriorBand, "exterior_band"},
		{metaInteriorBand, "interior_band"},
	} {
		if mask&m.bit == 0 {
			missing = append(missing, m.name)
		}
	}
	return missing
}

func writeArchive(w io.Writer, a archive) error {
	header := archiveHeader{
		Magic:          archiveMagic,
		Version:        archiveVersion,
		HeaderSize:     int32(binary.Size(archiveHeader{})),
		MetadataMask:   a.mask,
		GridCount:      int32(len(a.grids)),
		SphereSetCount: int32(len(a.spheres)),
	}
	if a.mask&metaVoxelSize != 0 {
		header.VoxelSize = a.meta.VoxelSize
	}
	if a.mask&metaBackground != 0 {
		header.Background = a.meta.Background
	}
	if a.mask&metaExteriorBand != 0 {
		header.ExteriorBand = a.meta.ExteriorBand
	}
	if a.mask&metaInteriorBand != 0 {
		header.InteriorBand = a.meta.InteriorBand
	}
	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return err
	}

	for _, ag := range a.grids {
		g := ag.grid
		gh := gridHeader{
			Role:         int32(ag.role),
			NameLength:   int32(len(g.name)),
			VoxelSize:    g.meta.VoxelSize,
			Background:   g.meta.Background,
			ExteriorBand: g.meta.ExteriorBand,
			InteriorBand: g.meta.InteriorBand,
			Origin:       [3]int64{g.origin.I, g.origin.J, g.origin.K},
			Dims:         g.dims,
		}
		if err := binary.Write(w, binary.LittleEndian, &gh); err != nil {
			return err
		}
		if _, err := io.WriteString(w, g.name); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, g.values); err != nil {
			return err
		}
	}

	for _, set := range a.spheres {
		sh := sphereHeader{NameLength: int32(len(set.Link)), Count: int32(len(set.Spheres))}
		if err := binary.Write(w, binary.LittleEndian, &sh); err != nil {
			return err
		}
		if _, err := io.WriteString(w, set.Link); err != nil {
			return err
		}
		packed := make([][4]float64, 0, len(set.Spheres))
		for _, s := range set.Spheres {
			packed = append(packed, [4]float64{s.Center.X, s.Center.Y, s.Center.Z, s.Radius})
		}
		if err := binary.Write(w, binary.LittleEndian, packed); err != nil {
			return err
		}
	}
	return nil
}

func readArchive(r io.Reader) (archive, error) {
	var a archive
	var header archiveHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return a, errors.Wrap(err, "reading header")
	}
	if header.Magic != archiveMagic {
		return a, ErrArchiveFormat
	}
	if header.Version != archiveVersion {
		return a, errors.Errorf("unsupported archive version %d", header.Version)
	}
	if int(header.HeaderSize) != binary.Size(archiveHeader{}) {
		return a, errors.Errorf("header size %d does not match expected size %d", header.HeaderSize, binary.Size(archiveHeader{}))
	}
	if header.GridCount < 0 || header.SphereSetCount < 0 {
		return a, errors.New("negative record count")
	}
	a.mask = header.MetadataMask
	a.meta = Metadata{
		VoxelSize:    header.VoxelSize,
		Background:   header.Background,
		ExteriorBand: header.ExteriorBand,
		InteriorBand: header.InteriorBand,
	}

	for i := int32(0); i < header.GridCount; i++ {
		var gh gridHeader
		if err := binary.Read(r, binary.LittleEndian, &gh); err != nil {
			return a, errors.Wrapf(err, "reading grid %d", i)
		}
		name, err := readName(r, gh.NameLength)
		if err != nil {
			return a, errors.Wrapf(err, "reading grid %d", i)
		}
		if gh.VoxelSize <= 0 || gh.Dims[0] <= 0 || gh.Dims[1] <= 0 || gh.Dims[2] <= 0 {
			return a, errors.Errorf("grid %q has invalid dimensions", name)
		}
		count, ok := gridValueCount(gh.Dims)
		if !ok {
			return a, errors.Errorf("grid %q has dimensions %v beyond the limit of %d values", name, gh.Dims, int64(maxGridValues))
		}
		g := &Grid{
			name: name,
			meta: Metadata{
				VoxelSize:    gh.VoxelSize,
				Background:   gh.Background,
				ExteriorBand: gh.ExteriorBand,
				InteriorBand: gh.InteriorBand,
			},
			origin:    Coord{I: gh.Origin[0], J: gh.Origin[1], K: gh.Origin[2]},
			dims:      gh.Dims,
			values:    make([]float32, count),
			transform: NewIdentityTransform(gh.VoxelSize),
		}
		if err := binary.Read(r, binary.LittleEndian, g.values); err != nil {
			return a, errors.Wrapf(err, "reading values of grid %q", name)
		}
		a.grids = append(a.grids, archivedGrid{role: Role(gh.Role), grid: g})
	}

	for i := int32(0); i < header.SphereSetCount; i++ {
		var sh sphereHeader
		if err := binary.Read(r, binary.LittleEndian, &sh); err != nil {
			return a, errors.Wrapf(err, "reading sphere set %d", i)
		}
		name, err := readName(r, sh.NameLength)
		if err != nil {
			return a, errors.Wrapf(err, "reading sphere set %d", i)
		}
		if sh.Count < 0 || sh.Count > MaxSphereCount {
			return a, errors.Errorf("sphere set %q has %d spheres", name, sh.Count)
		}
		packed := make([][4]float64, sh.Count)
		if err := binary.Read(r, binary.LittleEndian, packed); err != nil {
			return a, errors.Wrapf(err, "reading sphere set %q", name)
		}
		set := LinkSpheres{Link: name}
		for _, p := range packed {
			set.Spheres = append(set.Spheres, Sphere{Center: r3.Vector{X: p[0], Y: p[1], Z: p[2]}, Radius: p[3]})
		}
		a.spheres = append(a.spheres, set)
	}
	return a, nil
}

// gridValueCount multiplies positive dimensions, failing once the product passes maxGridValues.
func gridValueCount(dims [3]int64) (int64, bool) {
	count := int64(1)
	for _, d := range dims {
		if d <= 0 || d > maxGridValues || count > maxGridValues/d {
			return 0, false
		}
		count *= d
	}
	return count, true
}

func readName(r io.Reader, length int32) (string, error) {
	if length < 0 || length > maxNameLength {
		return "", errors.Errorf("invalid name length %d", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
