package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/regulumdb/ferricstore/pkg/cmdmain"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/triples"
)

type triplesCmd struct {
	dir     string
	layer   string
	subject uint64
	object  uint64
	changes bool
}

func init() {
	cmdmain.RegisterCommand("triples", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := new(triplesCmd)
		flags.StringVar(&c.dir, "dir", "", "store profile directory")
		flags.StringVar(&c.layer, "layer", "", "hex name of the layer to read from")
		flags.Uint64Var(&c.subject, "subject", 0, "if nonzero, only print triples for this subject id")
		flags.Uint64Var(&c.object, "object", 0, "if nonzero, print triples mentioning this object id from the named layer's own additions (not the merged stack view)")
		flags.BoolVar(&c.changes, "changes", false, "print (add|remove, triple) pairs across the ancestor chain instead of the merged view")
		return c
	})
}

func (c *triplesCmd) Describe() string {
	return "Print a layer's merged triples, or its per-layer change history."
}

func (c *triplesCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: tsctl triples -dir <profile> -layer <hex> [-subject <id>] [-changes]\n")
}

func (c *triplesCmd) Examples() []string {
	return []string{"-dir ./db -layer <hex>", "-dir ./db -layer <hex> -subject 3", "-dir ./db -layer <hex> -object 6", "-dir ./db -layer <hex> -changes"}
}

func (c *triplesCmd) RunCommand(args []string) error {
	if c.dir == "" || c.layer == "" {
		return cmdmain.ErrUsage
	}
	leafName, ok := ids.Parse(c.layer)
	if !ok {
		return fmt.Errorf("triples: invalid -layer %q", c.layer)
	}

	p, err := openProfile(c.dir)
	if err != nil {
		return err
	}
	defer p.Close()

	leaf, err := p.Layers.MustGet(leafName)
	if err != nil {
		return fmt.Errorf("triples: loading %s: %w", c.layer, err)
	}

	if c.object != 0 {
		it := triples.NewObjectIterator(leaf.Additions, c.object)
		for {
			t, ok := it.Next()
			if !ok {
				break
			}
			fmt.Fprintf(cmdmain.Stdout, "%d\t%d\t%d\n", t.Subject, t.Predicate, t.Object)
		}
		return nil
	}

	stack := triples.Stack(leaf)

	if c.changes {
		it := triples.NewChangeIterator(stack)
		for {
			change, t, ok := it.Next()
			if !ok {
				break
			}
			fmt.Fprintf(cmdmain.Stdout, "%s\t%d\t%d\t%d\n", change, t.Subject, t.Predicate, t.Object)
		}
		return nil
	}

	it := triples.NewMergeIterator(stack)
	if c.subject != 0 {
		it.Seek(c.subject)
	}
	for {
		t, ok := it.Next()
		if !ok {
			break
		}
		if c.subject != 0 && t.Subject != c.subject {
			break
		}
		fmt.Fprintf(cmdmain.Stdout, "%d\t%d\t%d\n", t.Subject, t.Predicate, t.Object)
	}
	return nil
}
