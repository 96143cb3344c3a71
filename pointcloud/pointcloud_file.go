package pointcloud

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/collisiondistance/utils"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
)

// ToPCD writes the cloud in the PCD format, converting millimeters to meters. The point values are written as
// the "distance" field, also in meters.
func ToPCD(cloud PointCloud, out io.Writer, outputType PCDType) error {
	if _, err := fmt.Fprintf(out, "VERSION .7\n"+
		"FIELDS x y z distance\n"+
		"SIZE 4 4 4 4\n"+
		"TYPE F F F F\n"+
		"COUNT 1 1 1 1\n"+
		"WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n",
		cloud.Size(),
		1,
		cloud.Size()); err != nil {
		return err
	}

	switch outputType {
	case PCDBinary:
		if _, err := fmt.Fprintf(out, "DATA binary\n"); err != nil {
			return err
		}
	case PCDAscii:
		if _, err := fmt.Fprintf(out, "DATA ascii\n"); err != nil {
			return err
		}
	default:
		return errors.Errorf("unsupported PCD type %d", outputType)
	}
	return writePCDData(cloud, out, outputType)
}

func writePCDData(cloud PointCloud, out io.Writer, pcdtype PCDType) error {
	var err error
	buf := make([]byte, 16)
	cloud.Iterate(0, 0, func(pos r3.Vector, value float64) bool {
		x := utils.MMToMeters(pos.X)
		y := utils.MMToMeters(pos.Y)
		z := utils.MMToMeters(pos.Z)
		d := utils.MMToMeters(value)
		switch pcdtype {
		case PCDBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(x)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(z)))
			binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(float32(d)))
			_, err = out.Write(buf)
		case PCDAscii:
			_, err = fmt.Fprintf(out, "%f %f %f %f\n", x, y, z, d)
		}
		return err == nil
	})
	return err
}
