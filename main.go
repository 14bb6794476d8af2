package main

import (
	"os"

	"github.com/go-spatial/bvh/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "bvh"
	app.Usage = "exercise the spatial acceleration library from the command line"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "build",
			Usage: "insert a random population of AABBs, then rebuild and report tree stats",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "count",
					Value: 1000,
					Usage: "number of objects to insert",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "PRNG seed",
				},
				cli.StringFlag{
					Name:  "strategy",
					Value: "sah",
					Usage: "partitioning strategy for rebuild: sah, median, equal",
				},
				cli.IntFlag{
					Name:  "max-leaf-size",
					Value: 8,
					Usage: "maximum objects per leaf",
				},
				cli.IntFlag{
					Name:  "max-depth",
					Value: 32,
					Usage: "maximum tree depth",
				},
			},
			Action: cmd.BuildTree,
		},
		{
			Name:  "raycast",
			Usage: "raycast against the two-cubes seed scenario plus random decoys",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "decoys",
					Value: 100,
					Usage: "number of decoy AABBs to scatter away from the ray",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "PRNG seed",
				},
			},
			Action: cmd.Raycast,
		},
		{
			Name:  "mesh",
			Usage: "build a mesh BVH over a tessellated sphere and compare against brute force",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "resolution",
					Value: 64,
					Usage: "latitude/longitude tessellation resolution",
				},
				cli.IntFlag{
					Name:  "rays",
					Value: 1000,
					Usage: "number of random rays to cast",
				},
				cli.IntFlag{
					Name:  "seed",
					Value: 1,
					Usage: "PRNG seed",
				},
				cli.StringFlag{
					Name:  "strategy",
					Value: "sah",
					Usage: "partitioning strategy: sah, median, equal",
				},
			},
			Action: cmd.MeshBenchmark,
		},
	}

	app.Run(os.Args)
}
