package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/regulumdb/ferricstore/pkg/cmdmain"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
	"github.com/regulumdb/ferricstore/pkg/rollup"
)

type rollupCmd struct {
	dir   string
	leaf  string
	name  string
	mode  string
	upto  string
	label string
}

func init() {
	cmdmain.RegisterCommand("rollup", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := new(rollupCmd)
		flags.StringVar(&c.dir, "dir", "", "store profile directory")
		flags.StringVar(&c.leaf, "layer", "", "hex name of the leaf layer to roll up")
		flags.StringVar(&c.name, "name", "", "hex name for the rolled-up layer (default: random)")
		flags.StringVar(&c.mode, "mode", "full", "\"full\" or \"delta\"")
		flags.StringVar(&c.upto, "upto", "", "hex name of the ancestor to roll up to (required for -mode delta)")
		flags.StringVar(&c.label, "label", "", "if set, create-or-update this label to point at the result")
		return c
	})
}

func (c *rollupCmd) Describe() string {
	return "Collapse a layer's ancestor chain into a single base (full) or partial (delta) layer."
}

func (c *rollupCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: tsctl rollup -dir <profile> -layer <hex> [-mode full|delta -upto <hex>] [-name <hex>] [-label <name>]\n")
}

func (c *rollupCmd) Examples() []string {
	return []string{
		"-dir ./db -layer <hex> -mode full -label main",
		"-dir ./db -layer <hex> -mode delta -upto <hex>",
	}
}

func (c *rollupCmd) RunCommand(args []string) error {
	if c.dir == "" || c.leaf == "" {
		return cmdmain.ErrUsage
	}
	leafName, ok := ids.Parse(c.leaf)
	if !ok {
		return fmt.Errorf("rollup: invalid -layer %q", c.leaf)
	}

	p, err := openProfile(c.dir)
	if err != nil {
		return err
	}
	defer p.Close()

	leaf, err := p.Layers.MustGet(leafName)
	if err != nil {
		return fmt.Errorf("rollup: loading %s: %w", c.leaf, err)
	}

	var name ids.Name
	if c.name != "" {
		name, ok = ids.Parse(c.name)
		if !ok {
			return fmt.Errorf("rollup: invalid -name %q", c.name)
		}
	} else {
		name = ids.NewRandom()
	}

	var result *layer.Layer
	switch c.mode {
	case "full":
		if c.upto != "" {
			return fmt.Errorf("rollup: -upto given with -mode full")
		}
		result, err = rollup.FullRollup(name, leaf)
	case "delta":
		if c.upto == "" {
			return fmt.Errorf("rollup: -mode delta requires -upto")
		}
		uptoName, ok := ids.Parse(c.upto)
		if !ok {
			return fmt.Errorf("rollup: invalid -upto %q", c.upto)
		}
		upto, err2 := p.Layers.MustGet(uptoName)
		if err2 != nil {
			return fmt.Errorf("rollup: loading -upto %s: %w", c.upto, err2)
		}
		result, err = rollup.DeltaRollup(name, leaf, upto)
	default:
		return fmt.Errorf("rollup: -mode must be \"full\" or \"delta\", got %q", c.mode)
	}
	if err != nil {
		return fmt.Errorf("rollup: %w", err)
	}

	if err := p.Layers.Put(result); err != nil {
		return fmt.Errorf("rollup: storing result %s: %w", name, err)
	}
	fmt.Fprintf(cmdmain.Stdout, "%s\n", name)

	if c.label != "" {
		if err := createOrUpdateLabel(p, c.label, name); err != nil {
			return err
		}
	}
	return nil
}
