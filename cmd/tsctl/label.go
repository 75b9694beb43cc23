package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/regulumdb/ferricstore/pkg/cmdmain"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/store"
)

type labelCmd struct {
	dir     string
	op      string
	name    string
	layer   string
	version uint64
	clear   bool
}

func init() {
	cmdmain.RegisterCommand("label", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := new(labelCmd)
		flags.StringVar(&c.dir, "dir", "", "store profile directory")
		flags.StringVar(&c.op, "op", "get", "\"create\", \"get\", \"set\", or \"delete\"")
		flags.StringVar(&c.name, "name", "", "label name")
		flags.StringVar(&c.layer, "layer", "", "hex layer name (for -op set)")
		flags.Uint64Var(&c.version, "version", 0, "expected current version (for -op set, CAS)")
		flags.BoolVar(&c.clear, "clear", false, "set with -op set to point the label at no layer")
		return c
	})
}

func (c *labelCmd) Describe() string { return "Create, read, CAS-update, or delete a named label." }

func (c *labelCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: tsctl label -dir <profile> -op <create|get|set|delete> -name <label> [-layer <hex> -version <n>]\n")
}

func (c *labelCmd) Examples() []string {
	return []string{
		"-dir ./db -op create -name main",
		"-dir ./db -op set -name main -version 0 -layer <hex>",
		"-dir ./db -op get -name main",
	}
}

func (c *labelCmd) RunCommand(args []string) error {
	if c.dir == "" || c.name == "" {
		return cmdmain.ErrUsage
	}
	p, err := openProfile(c.dir)
	if err != nil {
		return err
	}
	defer p.Close()

	switch c.op {
	case "create":
		lbl, err := p.Labels.Create(c.name)
		if err != nil {
			return err
		}
		printLabel(lbl)
		return nil

	case "get":
		lbl, ok, err := p.Labels.Get(c.name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tsctl: no such label %q", c.name)
		}
		printLabel(lbl)
		return nil

	case "set":
		cur, ok, err := p.Labels.Get(c.name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tsctl: no such label %q", c.name)
		}
		if cur.Version != c.version {
			return fmt.Errorf("tsctl: -version %d does not match current version %d; re-read and retry", c.version, cur.Version)
		}
		var newLayer ids.Name
		hasLayer := !c.clear
		if hasLayer {
			if c.layer == "" {
				return fmt.Errorf("tsctl: -op set requires -layer unless -clear is given")
			}
			var parseOk bool
			newLayer, parseOk = ids.Parse(c.layer)
			if !parseOk {
				return fmt.Errorf("tsctl: invalid -layer %q", c.layer)
			}
		}
		updated, ok, err := p.Labels.SetLabel(cur, newLayer, hasLayer)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tsctl: CAS failed: label %q changed concurrently", c.name)
		}
		printLabel(updated)
		return nil

	case "delete":
		return p.Labels.Delete(c.name)

	default:
		return fmt.Errorf("tsctl: -op must be create, get, set, or delete, got %q", c.op)
	}
}

func printLabel(lbl store.Label) {
	if lbl.HasLayer {
		fmt.Fprintf(cmdmain.Stdout, "%s\tversion=%d\tlayer=%s\n", lbl.Name, lbl.Version, lbl.Layer)
		return
	}
	fmt.Fprintf(cmdmain.Stdout, "%s\tversion=%d\tlayer=<none>\n", lbl.Name, lbl.Version)
}
