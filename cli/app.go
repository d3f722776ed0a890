// Package cli contains the mdi command line tool.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"

	"github.com/mdi-inspection/mdi/octree"
	"github.com/mdi-inspection/mdi/spline"
)

const (
	flagDebug      = "debug"
	flagLogFile    = "log-file"
	flagParallel   = "parallel"
	flagResponse   = "response"
	flagProgress   = "progress"
	flagRequest    = "request"
	flagMap        = "map"
	flagResolution = "resolution"
	flagMaxRange   = "max-range"
	flagOutput     = "output"
	flagTable      = "table"
	flagPNG        = "png"
	flagPlane      = "plane"
	flagBlocked    = "blocked"
	flagPoints     = "points"
	flagSamples    = "samples"
	flagSpacing    = "spacing"
)

func mapFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.PathFlag{
			Name:     flagMap,
			Aliases:  []string{"m"},
			Required: required,
			Usage:    "build the occupancy map from the pcd `FILE`",
		},
		&cli.Float64Flag{
			Name:  flagResolution,
			Value: octree.DefaultResolution,
			Usage: "voxel side length of the map in metres",
		},
		&cli.Float64Flag{
			Name:  flagMaxRange,
			Usage: "ignore hits further than this from the scan viewpoint, 0 for no limit",
		},
	}
}

var app = &cli.App{
	Name:            "mdi",
	Usage:           "plan drone inspection paths over occupancy maps",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    flagDebug,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
		&cli.BoolFlag{
			Name:  flagProgress,
			Usage: "show progress spinners on stderr",
		},
		&cli.PathFlag{
			Name:  flagLogFile,
			Usage: "also write logs to the size-rotated `FILE`",
		},
	},
	Commands: []*cli.Command{
		{
			Name:      "plan",
			Usage:     "answer a goal or next-best-view planning request",
			UsageText: "mdi plan --request FILE [--request FILE ...] [--map FILE] [other options]",
			Flags: append([]cli.Flag{
				&cli.StringSliceFlag{
					Name:     flagRequest,
					Aliases:  []string{"r"},
					Required: true,
					Usage:    "read a planning request from the json `FILE`; ${VAR} references are expanded. Repeat to plan several",
				},
				&cli.IntFlag{
					Name:  flagParallel,
					Value: 4,
					Usage: "plan at most this many requests at once, 0 for no limit",
				},
				&cli.PathFlag{
					Name:    flagOutput,
					Aliases: []string{"o"},
					Usage:   "write the json response to `FILE` instead of stdout",
				},
				&cli.BoolFlag{
					Name:  flagTable,
					Usage: "print the response as tables instead of json",
				},
				&cli.PathFlag{
					Name:  flagPNG,
					Usage: "render the search tree and path to the png `FILE`; needs a single request",
				},
				&cli.StringFlag{
					Name:  flagPlane,
					Value: "xy",
					Usage: "projection plane of the png, one of xy, xz or yz",
				},
				&cli.BoolFlag{
					Name:  flagBlocked,
					Usage: "draw blocked collision checks in the png",
				},
			}, mapFlags(false)...),
			Action: PlanAction,
		},
		{
			Name:      "spline",
			Usage:     "fit a bezier spline through waypoints",
			UsageText: "mdi spline --points FILE [--samples N] [--spacing METRES]",
			Flags: []cli.Flag{
				&cli.PathFlag{
					Name:     flagPoints,
					Aliases:  []string{"p"},
					Required: true,
					Usage:    "read a json array of {x, y, z} points from `FILE`",
				},
				&cli.IntFlag{
					Name:  flagSamples,
					Value: spline.DefaultResolution,
					Usage: "number of curve samples",
				},
				&cli.Float64Flag{
					Name:  flagSpacing,
					Usage: "resample the curve at this arc length spacing, 0 to print the raw samples",
				},
				&cli.BoolFlag{
					Name:  flagTable,
					Usage: "print the points as a table instead of json",
				},
			},
			Action: SplineAction,
		},
		{
			Name:      "map",
			Usage:     "summarize the occupancy map built from a scan",
			UsageText: "mdi map --map FILE [--resolution METRES] [--max-range METRES]",
			Flags:     mapFlags(true),
			Action:    MapAction,
		},
		{
			Name:  "schema",
			Usage: "print the json schema of planning requests",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  flagResponse,
					Usage: "print the schema of responses instead",
				},
			},
			Action: SchemaAction,
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
