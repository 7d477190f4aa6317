// Package graph implements SPEC_FULL.md component F: expanding a seed set
// of node ids into a DAG by walking outgoing links, with optional sticky
// top-up, pruning (all/upwards/downwards), and cluster combination for
// display (spec.md 4.F).
package graph
