/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config defines a helper type for JSON objects used to
// configure a store profile: which label/layer store backend to use,
// and that backend's parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Obj is a JSON configuration map. Accessors record which keys they
// looked at; Validate then reports any key nobody asked for as an
// error, catching typos in hand-written config files.
type Obj map[string]interface{}

// ReadFile reads and parses a JSON object from configPath.
func ReadFile(configPath string) (Obj, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", configPath, err)
	}
	return Obj(m), nil
}

func (o Obj) RequiredString(key string) string { return o.string(key, nil) }

func (o Obj) OptionalString(key, def string) string { return o.string(key, &def) }

func (o Obj) string(key string, def *string) string {
	o.noteKnownKey(key)
	ei, ok := o[key]
	if !ok {
		if def != nil {
			return *def
		}
		o.appendError(fmt.Errorf("missing required config key %q (string)", key))
		return ""
	}
	s, ok := ei.(string)
	if !ok {
		o.appendError(fmt.Errorf("config key %q should be a string, not %T", key, ei))
		return ""
	}
	return s
}

func (o Obj) RequiredInt(key string) int { return o.int(key, nil) }

func (o Obj) OptionalInt(key string, def int) int { return o.int(key, &def) }

func (o Obj) int(key string, def *int) int {
	o.noteKnownKey(key)
	ei, ok := o[key]
	if !ok {
		if def != nil {
			return *def
		}
		o.appendError(fmt.Errorf("missing required config key %q (integer)", key))
		return 0
	}
	f, ok := ei.(float64)
	if !ok {
		o.appendError(fmt.Errorf("config key %q should be a number, not %T", key, ei))
		return 0
	}
	return int(f)
}

func (o Obj) OptionalBool(key string, def bool) bool {
	o.noteKnownKey(key)
	ei, ok := o[key]
	if !ok {
		return def
	}
	b, ok := ei.(bool)
	if !ok {
		o.appendError(fmt.Errorf("config key %q should be a boolean, not %T", key, ei))
		return def
	}
	return b
}

func (o Obj) noteKnownKey(key string) {
	m, ok := o["_knownkeys"].(map[string]bool)
	if !ok {
		m = make(map[string]bool)
		o["_knownkeys"] = m
	}
	m[key] = true
}

func (o Obj) appendError(err error) {
	if ei, ok := o["_errors"]; ok {
		o["_errors"] = append(ei.([]error), err)
	} else {
		o["_errors"] = []error{err}
	}
}

// Validate reports any key in o that no accessor read, plus any error
// accumulated by earlier accessor calls.
func (o Obj) Validate() error {
	known, _ := o["_knownkeys"].(map[string]bool)
	for k := range o {
		if known[k] || strings.HasPrefix(k, "_") {
			continue
		}
		o.appendError(fmt.Errorf("unknown config key %q", k))
	}
	ei, ok := o["_errors"]
	if !ok {
		return nil
	}
	errs := ei.([]error)
	if len(errs) == 1 {
		return errs[0]
	}
	strs := make([]string, len(errs))
	for i, e := range errs {
		strs[i] = e.Error()
	}
	return fmt.Errorf("config: multiple errors: %s", strings.Join(strs, "; "))
}
