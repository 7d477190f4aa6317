// Package export renders the store's graph into external artifacts:
// a clang-compatible compile_commands.json array, a Graphviz digraph of
// the node/link graph, and a .gitignore fragment listing generated
// files (the write_gitignore supplement from SPEC_FULL.md 6). None of
// these mutate the store; each is a pure read-and-format pass.
package export
