package distancefield

import (
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Config describes how the distance fields of a robot are built.
type Config struct {
	// VoxelSize is the nominal distance between grid nodes, in millimeters.
	VoxelSize float64 `json:"voxel_size"`
	// Background is the value stored where a grid holds no distance information.
	Background float64 `json:"background"`
	// ExteriorBand and InteriorBand are the widths, in voxels, of the band where exact distances are stored.
	ExteriorBand float64 `json:"exterior_band"`
	InteriorBand float64 `json:"interior_band"`
	// SphereCount is the largest number of spheres fit to an active link.
	SphereCount int `json:"sphere_count"`
	// SphereSamples is the largest number of interior nodes considered when fitting spheres.
	SphereSamples int `json:"sphere_samples"`
	// SphereAttempts is how many times the voxel size is halved while the sphere fit is degenerate.
	SphereAttempts int `json:"sphere_attempts"`
	// MaxVoxels bounds the size of a single grid, zero for no limit.
	MaxVoxels int64 `json:"max_voxels"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		VoxelSize:      10,
		Background:     500,
		ExteriorBand:   10,
		InteriorBand:   3,
		SphereCount:    20,
		SphereSamples:  100000,
		SphereAttempts: 10,
		MaxVoxels:      1 << 26,
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate() error {
	var err error
	if cfg.VoxelSize <= 0 {
		err = multierr.Append(err, errors.Errorf("voxel_size must be positive, got %v", cfg.VoxelSize))
	}
	if cfg.Background <= 0 {
		err = multierr.Append(err, errors.Errorf("background must be positive, got %v", cfg.Background))
	}
	if cfg.ExteriorBand < 1 {
		err = multierr.Append(err, errors.Errorf("exterior_band must be at least one voxel, got %v", cfg.ExteriorBand))
	}
	if cfg.InteriorBand < 1 {
		err = multierr.Append(err, errors.Errorf("interior_band must be at least one voxel, got %v", cfg.InteriorBand))
	}
	if cfg.VoxelSize > 0 && cfg.ExteriorBand*cfg.VoxelSize >= cfg.Background {
		err = multierr.Append(err, errors.Errorf(
			"background %v must exceed the exterior band width %v", cfg.Background, cfg.ExteriorBand*cfg.VoxelSize))
	}
	if cfg.SphereCount < 2 || cfg.SphereCount > MaxSphereCount {
		err = multierr.Append(err, errors.Errorf(
			"sphere_count must be between 2 and %d, got %d", MaxSphereCount, cfg.SphereCount))
	}
	if cfg.SphereSamples <= 0 {
		err = multierr.Append(err, errors.Errorf("sphere_samples must be positive, got %d", cfg.SphereSamples))
	}
	if cfg.SphereAttempts <= 0 {
		err = multierr.Append(err, errors.Errorf("sphere_attempts must be positive, got %d", cfg.SphereAttempts))
	}
	if cfg.MaxVoxels < 0 {
		err = multierr.Append(err, errors.Errorf("max_voxels must not be negative, got %d", cfg.MaxVoxels))
	}
	return err
}

// ConfigFromAttributes decodes loosely typed attributes, such as a parsed JSON object, over the default config.
func ConfigFromAttributes(attributes map[string]interface{}) (*Config, error) {
	conf := DefaultConfig()
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &conf,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrap(err, "decoding distance field config")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (cfg *Config) metadata() Metadata {
	return Metadata{
		VoxelSize:    cfg.VoxelSize,
		Background:   cfg.Background,
		ExteriorBand: cfg.ExteriorBand,
		InteriorBand: cfg.InteriorBand,
	}
}

func (cfg *Config) gridOptions() GridOptions {
	return GridOptions{Metadata: cfg.metadata(), MaxVoxels: cfg.MaxVoxels}
}

func (cfg *Config) sphereOptions() SphereOptions {
	opts := DefaultSphereOptions()
	opts.Count = cfg.SphereCount
	opts.Samples = cfg.SphereSamples
	return opts
}
