// Package pkg provides the core libraries for tablepack.
//
// # Overview
//
// Tablepack re-serializes font-table object graphs so that every
// inter-object offset fits within its declared field width. The pkg
// directory is organized into:
//
//  1. [repack] - The core: graph model, topological sorts, overflow
//     oracle, re-emission
//  2. [manifest] - Human-authorable graph descriptions (TOML/JSON)
//  3. [pipeline] - Orchestration (resolve → sort → emit) with caching
//  4. [cache] - Artifact cache backends (file, Redis, null)
//  5. [render] - Graphviz visualization of object graphs
//  6. [errors], [observability], [buildinfo] - Cross-cutting concerns
//
// # Architecture
//
// The typical data flow through tablepack:
//
//	Subsetter output / manifest
//	         ↓
//	    [manifest] package (resolve names to a packed object list)
//	         ↓
//	    [repack] package (sort, predict overflows, emit)
//	         ↓
//	    byte stream + overflow report
//
// # Quick Start
//
//	doc, err := manifest.Load("subset.toml")
//	if err != nil { ... }
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, doc, pipeline.Options{})
//
// Library consumers embedding the repacker in a serializer skip the
// manifest layer entirely and call [repack.ResolveOverflows] with their
// packed object list and sink.
//
// [repack]: github.com/matzehuels/tablepack/pkg/repack
// [manifest]: github.com/matzehuels/tablepack/pkg/manifest
// [pipeline]: github.com/matzehuels/tablepack/pkg/pipeline
// [cache]: github.com/matzehuels/tablepack/pkg/cache
// [render]: github.com/matzehuels/tablepack/pkg/render
// [errors]: github.com/matzehuels/tablepack/pkg/errors
// [observability]: github.com/matzehuels/tablepack/pkg/observability
// [buildinfo]: github.com/matzehuels/tablepack/pkg/buildinfo
package pkg
