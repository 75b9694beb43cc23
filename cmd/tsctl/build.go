package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strconv"

	"github.com/regulumdb/ferricstore/pkg/cmdmain"
	"github.com/regulumdb/ferricstore/pkg/dict"
	"github.com/regulumdb/ferricstore/pkg/ids"
	"github.com/regulumdb/ferricstore/pkg/layer"
)

// layerSpec is the bulk-load input format for "tsctl build": pre-sorted
// dictionary entries and already-resolved triples, the same shape a
// Builder expects to ingest directly. Producing dictionary-ordered,
// id-resolved input from raw subject/predicate/object strings is a
// write-path concern (query planning, name resolution) that spec.md's
// Non-goals explicitly place outside this engine.
type layerSpec struct {
	Nodes      []string     `json:"nodes"`
	Predicates []string     `json:"predicates"`
	Values     []valueSpec  `json:"values"`
	Additions  [][3]uint64  `json:"additions"`
	Removals   [][3]uint64  `json:"removals"`
}

type valueSpec struct {
	Tag   string          `json:"tag"`
	Value json.RawMessage `json:"value"`
}

func parseTag(s string) (dict.Tag, error) {
	switch s {
	case "string":
		return dict.TagString, nil
	case "u32":
		return dict.TagU32, nil
	case "i32":
		return dict.TagI32, nil
	case "u64":
		return dict.TagU64, nil
	case "i64":
		return dict.TagI64, nil
	case "f32":
		return dict.TagF32, nil
	case "f64":
		return dict.TagF64, nil
	case "bigint":
		return dict.TagBigInt, nil
	case "decimal":
		return dict.TagDecimal, nil
	default:
		return 0, fmt.Errorf("build: unknown value tag %q", s)
	}
}

func encodeValue(tag dict.Tag, raw json.RawMessage) ([]byte, error) {
	switch tag {
	case dict.TagString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return []byte(s), nil
	case dict.TagU32:
		var v uint32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeU32(v), nil
	case dict.TagI32:
		var v int32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeI32(v), nil
	case dict.TagU64:
		var v uint64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeU64(v), nil
	case dict.TagI64:
		var v int64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeI64(v), nil
	case dict.TagF32:
		var v float32
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeF32(v), nil
	case dict.TagF64:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return dict.EncodeF64(v), nil
	case dict.TagBigInt:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		v, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("build: invalid bigint %q", s)
		}
		return dict.EncodeBigInt(v), nil
	case dict.TagDecimal:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		d, err := parseDecimal(s)
		if err != nil {
			return nil, err
		}
		return dict.EncodeDecimal(d), nil
	default:
		return nil, fmt.Errorf("build: unhandled tag %v", tag)
	}
}

// parseDecimal parses a plain decimal literal like "-12.340" into a
// dict.Decimal (unscaled * 10^-scale), trailing zeros included in the
// scale exactly as written.
func parseDecimal(s string) (dict.Decimal, error) {
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	intPart, fracPart := s, ""
	for i, c := range s {
		if c == '.' {
			intPart, fracPart = s[:i], s[i+1:]
			break
		}
	}
	digits := intPart + fracPart
	if digits == "" {
		return dict.Decimal{}, fmt.Errorf("build: invalid decimal %q", s)
	}
	unscaled, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return dict.Decimal{}, fmt.Errorf("build: invalid decimal %q", s)
	}
	if neg {
		unscaled.Neg(unscaled)
	}
	return dict.Decimal{Unscaled: unscaled, Scale: int32(len(fracPart))}, nil
}

type buildCmd struct {
	dir    string
	name   string
	kind   string
	parent string
	in     string
	label  string
}

func init() {
	cmdmain.RegisterCommand("build", func(flags *flag.FlagSet) cmdmain.CommandRunner {
		c := new(buildCmd)
		flags.StringVar(&c.dir, "dir", "", "store profile directory")
		flags.StringVar(&c.name, "name", "", "hex name for the new layer (default: random)")
		flags.StringVar(&c.kind, "kind", "base", "\"base\" or \"child\"")
		flags.StringVar(&c.parent, "parent", "", "hex name of the parent layer (required for -kind child)")
		flags.StringVar(&c.in, "in", "", "path to a JSON layerSpec file")
		flags.StringVar(&c.label, "label", "", "if set, create-or-update this label to point at the new layer")
		return c
	})
}

func (c *buildCmd) Describe() string { return "Build a new layer from a JSON bulk-load spec." }

func (c *buildCmd) Usage() {
	fmt.Fprintf(os.Stderr, "Usage: tsctl build -dir <profile> -in <spec.json> [-kind child -parent <hex>] [-name <hex>] [-label <name>]\n")
}

func (c *buildCmd) Examples() []string {
	return []string{"-dir ./db -in base.json", "-dir ./db -kind child -parent <hex> -in delta.json -label main"}
}

func (c *buildCmd) RunCommand(args []string) error {
	if c.dir == "" || c.in == "" {
		return cmdmain.ErrUsage
	}
	raw, err := os.ReadFile(c.in)
	if err != nil {
		return err
	}
	var spec layerSpec
	if err := json.Unmarshal(raw, &spec); err != nil {
		return fmt.Errorf("build: parsing %s: %w", c.in, err)
	}

	p, err := openProfile(c.dir)
	if err != nil {
		return err
	}
	defer p.Close()

	var kind layer.Kind
	var parent *layer.Layer
	switch c.kind {
	case "base":
		kind = layer.Base
		if c.parent != "" {
			return fmt.Errorf("build: -parent given with -kind base")
		}
	case "child":
		kind = layer.Child
		if c.parent == "" {
			return fmt.Errorf("build: -kind child requires -parent")
		}
		parentName, ok := ids.Parse(c.parent)
		if !ok {
			return fmt.Errorf("build: invalid -parent name %q", c.parent)
		}
		parent, err = p.Layers.MustGet(parentName)
		if err != nil {
			return fmt.Errorf("build: loading parent %s: %w", c.parent, err)
		}
	default:
		return fmt.Errorf("build: -kind must be \"base\" or \"child\", got %q", c.kind)
	}

	var name ids.Name
	if c.name != "" {
		var ok bool
		name, ok = ids.Parse(c.name)
		if !ok {
			return fmt.Errorf("build: invalid -name %q", c.name)
		}
	} else {
		name = ids.NewRandom()
	}

	b := layer.NewBuilder(name, kind, parent)
	for _, n := range spec.Nodes {
		if err := b.AddNode([]byte(n)); err != nil {
			return fmt.Errorf("build: adding node %q: %w", n, err)
		}
	}
	for _, pr := range spec.Predicates {
		if err := b.AddPredicate([]byte(pr)); err != nil {
			return fmt.Errorf("build: adding predicate %q: %w", pr, err)
		}
	}
	for _, v := range spec.Values {
		tag, err := parseTag(v.Tag)
		if err != nil {
			return err
		}
		encoded, err := encodeValue(tag, v.Value)
		if err != nil {
			return err
		}
		if err := b.AddValue(tag, encoded); err != nil {
			return fmt.Errorf("build: adding value %s:%s: %w", v.Tag, v.Value, err)
		}
	}
	b.FinalizeDictionaries()

	for _, t := range spec.Additions {
		if err := b.AddAddition(t[0], t[1], t[2]); err != nil {
			return fmt.Errorf("build: adding triple %v: %w", t, err)
		}
	}
	for _, t := range spec.Removals {
		if err := b.AddRemoval(t[0], t[1], t[2]); err != nil {
			return fmt.Errorf("build: adding removal %v: %w", t, err)
		}
	}

	l := b.Finalize()
	if err := p.Layers.Put(l); err != nil {
		return fmt.Errorf("build: storing layer %s: %w", name, err)
	}
	fmt.Fprintf(cmdmain.Stdout, "%s\n", name)

	if c.label != "" {
		if err := createOrUpdateLabel(p, c.label, name); err != nil {
			return err
		}
	}
	return nil
}

// createOrUpdateLabel points label at layerName, creating the label
// if it doesn't exist yet, or CAS-retrying against its current
// version if it does. This is a best-effort single-writer convenience
// for the CLI; concurrent writers should drive LabelStore.SetLabel
// themselves.
func createOrUpdateLabel(p *profile, label string, layerName ids.Name) error {
	cur, ok, err := p.Labels.Get(label)
	if err != nil {
		return err
	}
	if !ok {
		cur, err = p.Labels.Create(label)
		if err != nil {
			return err
		}
	}
	for {
		updated, ok, err := p.Labels.SetLabel(cur, layerName, true)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(cmdmain.Stdout, "label %s -> %s (version %s)\n", label, layerName, strconv.FormatUint(updated.Version, 10))
			return nil
		}
		cur, ok, err = p.Labels.Get(label)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("tsctl: label %q disappeared during update", label)
		}
	}
}
