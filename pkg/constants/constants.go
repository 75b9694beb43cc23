/*
Copyright 2014 the Camlistore authors.

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

// Package constants holds size limits shared across this module's
// packages.
//
// This is a leaf package, without dependencies.
package constants

// MaxDictEntrySize bounds the byte length of a single front-coded
// dictionary entry (a node, predicate, or encoded typed value) that
// pkg/dict.Builder.Add will accept. A front-coded block stores each
// entry's shared-prefix length and suffix length as part of its
// varint-prefixed layout; this bound keeps those lengths, and the
// in-memory pending-block buffer, well clear of pathological inputs.
const MaxDictEntrySize = 1 << 20
