package main

import (
	"flag"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"

	"github.com/regulumdb/ferricstore/pkg/cmdmain"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
)

type inspectCmd struct {
	dir   string
	layer string
	chain bool
}

func init() {
	cmdmain.RegisterCommand("inspect", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := new(inspectCmd)
		flags.StringVar(&c.dir, "dir", "", "store profile directory")
		flags.StringVar(&c.layer, "layer", "", "hex name of the layer to inspect")
		flags.BoolVar(&c.chain, "chain", false, "also report totals across the full ancestor chain")
		return c
	})
}

func (c *inspectCmd) Describe() string {
	return "Report dictionary and triple counts for a layer, human-readable."
}

func (c *inspectCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: tsctl inspect -dir <profile> -layer <hex> [-chain]\n")
}

func (c *inspectCmd) Examples() []string {
	return []string{"-dir ./db -layer <hex>", "-dir ./db -layer <hex> -chain"}
}

func (c *inspectCmd) RunCommand(args []string) error {
	if c.dir == "" || c.layer == "" {
		return cmdmain.ErrUsage
	}
	name, ok := ids.Parse(c.layer)
	if !ok {
		return fmt.Errorf("inspect: invalid -layer %q", c.layer)
	}

	p, err := openProfile(c.dir)
	if err != nil {
		return err
	}
	defer p.Close()

	l, err := p.Layers.MustGet(name)
	if err != nil {
		return fmt.Errorf("inspect: loading %s: %w", c.layer, err)
	}

	reportOne(l)
	if seq, ok := p.Layers.CreatedAt(name); ok {
		fmt.Fprintf(cmdmain.Stdout, "seen order: %s\n", humanize.Ordinal(int(seq)))
	}

	const sampleSize = 5
	n := l.NodeDict.NumEntries()
	if n > sampleSize {
		n = sampleSize
	}
	if n > 0 {
		fmt.Fprintf(cmdmain.Stdout, "sample nodes:\n")
		for id := 1; id <= n; id++ {
			s, err := l.NodeDict.EntryString(uint64(id))
			if err != nil {
				return fmt.Errorf("inspect: reading node %d: %w", id, err)
			}
			fmt.Fprintf(cmdmain.Stdout, "  %d: %s\n", id, s)
		}
	}

	if c.chain {
		chain, err := p.Layers.Resolve(name)
		if err != nil {
			return fmt.Errorf("inspect: resolving ancestor chain: %w", err)
		}
		var totalAdd, totalRem uint64
		for _, anc := range chain {
			totalAdd += uint64(anc.Additions.NumTriples())
			totalRem += uint64(anc.Removals.NumTriples())
		}
		fmt.Fprintf(cmdmain.Stdout, "chain depth: %s layers, %s total additions, %s total removals\n",
			humanize.Comma(int64(len(chain))), humanize.Comma(int64(totalAdd)), humanize.Comma(int64(totalRem)))
	}
	return nil
}

func reportOne(l *layer.Layer) {
	fmt.Fprintf(cmdmain.Stdout, "name:       %s\n", l.Name())
	fmt.Fprintf(cmdmain.Stdout, "kind:       %s\n", l.Kind())
	if l.Parent() != nil {
		fmt.Fprintf(cmdmain.Stdout, "parent:     %s\n", l.Parent().Name())
	}
	fmt.Fprintf(cmdmain.Stdout, "nodes:      %s\n", humanize.Comma(int64(l.NodeDict.NumEntries())))
	fmt.Fprintf(cmdmain.Stdout, "predicates: %s\n", humanize.Comma(int64(l.PredicateDict.NumEntries())))
	fmt.Fprintf(cmdmain.Stdout, "values:     %s\n", humanize.Comma(int64(l.ValueDict.NumEntries())))
	fmt.Fprintf(cmdmain.Stdout, "additions:  %s\n", humanize.Comma(int64(l.Additions.NumTriples())))
	if l.Removals != nil {
		fmt.Fprintf(cmdmain.Stdout, "removals:   %s\n", humanize.Comma(int64(l.Removals.NumTriples())))
	}
}
