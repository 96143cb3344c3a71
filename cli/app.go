// Package cli contains all business logic needed by the sdfdistance CLI.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	// Global flags.
	generalFlagURDF        = "urdf"
	generalFlagSRDF        = "srdf"
	generalFlagConfig      = "config"
	generalFlagDebug       = "debug"
	generalFlagMetricsAddr = "metrics-addr"
	generalFlagLogFile     = "log-file"

	// Command flags.
	flagArchive    = "archive"
	flagOut        = "out"
	flagJoint      = "joint"
	flagGroup      = "group"
	flagGradient   = "gradient"
	flagExclude    = "exclude"
	flagBinary     = "binary"
	flagIterations = "iterations"
	flagSeed       = "seed"
)

var archiveFlag = &cli.PathFlag{
	Name:  flagArchive,
	Usage: "load distance fields from `FILE` instead of building them",
}

var jointFlag = &cli.StringSliceFlag{
	Name:    flagJoint,
	Aliases: []string{"j"},
	Usage:   "joint input as `NAME=VALUE`, radians or millimeters; unlisted joints are zero",
}

var app = &cli.App{
	Name:            "sdfdistance",
	Usage:           "build and query signed distance fields of a robot",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.PathFlag{
			Name:     generalFlagURDF,
			Usage:    "robot description `FILE`",
			Required: true,
		},
		&cli.PathFlag{
			Name:  generalFlagSRDF,
			Usage: "semantic description `FILE` with groups and disabled collisions",
		},
		&cli.PathFlag{
			Name:    generalFlagConfig,
			Aliases: []string{"c"},
			Usage:   "load distance field configuration from JSON `FILE`",
		},
		&cli.BoolFlag{
			Name:    generalFlagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.StringFlag{
			Name:  generalFlagMetricsAddr,
			Usage: "serve prometheus metrics on `ADDR` while the command runs",
		},
		&cli.PathFlag{
			Name:  generalFlagLogFile,
			Usage: "also write JSON logs to `FILE`, rotated by size",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "build",
			Usage:     "build the distance fields of every link and write them to an archive",
			UsageText: "sdfdistance --urdf <file> build --out <file>",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagOut,
					Aliases:  []string{"o"},
					Usage:    "archive `FILE` to write",
					Required: true,
				},
			},
			Action: BuildAction,
		},
		{
			Name:  "query",
			Usage: "print the self distance of every active link",
			Flags: []cli.Flag{
				archiveFlag,
				jointFlag,
				&cli.StringFlag{
					Name:  flagGroup,
					Usage: "only report links moved by `GROUP`",
				},
				&cli.BoolFlag{
					Name:  flagGradient,
					Usage: "also compute avoidance gradients",
				},
			},
			Action: QueryAction,
		},
		{
			Name:  "exact",
			Usage: "print the exact self distance of every link from its geometries",
			Flags: []cli.Flag{
				jointFlag,
				&cli.StringFlag{
					Name:  flagGroup,
					Usage: "only report links moved by `GROUP`",
				},
			},
			Action: ExactAction,
		},
		{
			Name:  "spheres",
			Usage: "print the sphere approximation of every active link",
			Flags: []cli.Flag{
				archiveFlag,
				jointFlag,
			},
			Action: SpheresAction,
		},
		{
			Name:  "points",
			Usage: "export the informative grid nodes as inside and outside PCD files",
			Flags: []cli.Flag{
				archiveFlag,
				jointFlag,
				&cli.StringFlag{
					Name:     flagOut,
					Aliases:  []string{"o"},
					Usage:    "write `PREFIX`_inside.pcd and `PREFIX`_outside.pcd",
					Required: true,
				},
				&cli.StringSliceFlag{
					Name:  flagExclude,
					Usage: "`LINK` to leave out of the export",
				},
				&cli.BoolFlag{
					Name:  flagBinary,
					Usage: "write binary PCD data",
				},
			},
			Action: PointsAction,
		},
		{
			Name:  "bench",
			Usage: "time self distance queries at random joint inputs",
			Flags: []cli.Flag{
				archiveFlag,
				&cli.IntFlag{
					Name:  flagIterations,
					Usage: "number of queries",
					Value: 1000,
				},
				&cli.Int64Flag{
					Name:  flagSeed,
					Usage: "seed for the joint input sampler",
					Value: 1,
				},
			},
			Action: BenchAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
