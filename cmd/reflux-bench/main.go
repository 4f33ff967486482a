// Command reflux-bench times how a write to a shared root cell propagates
// through fan-out chains of derived cells, comparing the lazy (Compute) and
// eager (Maintain) configurations across a grid of chain widths and depths —
// the same width-by-height propagation benchmark the teacher's own
// cmd/benchmark runs against its competing signal implementations, run here
// against this engine's two derived-cell strategies instead.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"
)

const (
	widthsKey = "widths"
	heightsKey = "heights"
	itersKey  = "iters"
)

func main() {
	cmd := &cli.Command{
		Name:  "reflux-bench",
		Usage: "Compare lazy and eager derived-cell propagation cost",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  widthsKey,
				Usage: "Comma-separated chain widths",
				Value: "1,10,100",
			},
			&cli.StringFlag{
				Name:  heightsKey,
				Usage: "Comma-separated chain depths",
				Value: "1,10,100",
			},
			&cli.UintFlag{
				Name:  itersKey,
				Usage: "Writes timed per shape",
				Value: 100,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	widths, err := parseInts(cmd.String(widthsKey))
	if err != nil {
		return err
	}
	heights, err := parseInts(cmd.String(heightsKey))
	if err != nil {
		return err
	}
	iters := int(cmd.Uint(itersKey))

	for _, kind := range []configKind{configLazy, configEager} {
		results, err := runBenchmark(kind, widths, heights, iters)
		if err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		renderTable(kind, results, iters)
	}
	return nil
}

func parseInts(csv string) ([]int, error) {
	parts := strings.Split(csv, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
