// Command reflux-trace runs a scripted transaction and renders its recalc
// trace: the settled cell values after each atomic pass. The teacher pairs
// a generate/transform binary with an observe/render one (cmd/codegen next
// to cmd/benchmark); this is this repo's observe/render half.
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

const htmlOutKey = "html"

func main() {
	cmd := &cli.Command{
		Name:  "reflux-trace",
		Usage: "Render the recalc trace of a scripted transaction",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  htmlOutKey,
				Usage: "Write an HTML trace export to this path instead of stdout",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	rows, err := traceTemperatureConverter()
	if err != nil {
		return err
	}

	if htmlPath := cmd.String(htmlOutKey); htmlPath != "" {
		return writeHTMLTrace(htmlPath, rows)
	}
	renderTable(rows)
	return nil
}
