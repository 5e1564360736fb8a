// Package main hosts the corpuskit CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into corpus
// batch operations: splitting, merging, pruning, dataset conversion, archive
// fetching, statistics, and filter-bank extraction. It centralizes
// configuration resolution, structured logging setup, the corpus run lock,
// and run-ledger recording so subcommands can focus on user experience
// instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// The heavy lifting lives in reusable batch components; the CLI stays
// declarative.
package main
