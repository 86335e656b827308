// Package lineage derives end-to-end column lineage from the detailed
// provenance held in the buffer graph and queries it in the main graph.
//
// Three pieces cooperate:
//
//   - PathFinder walks a derivation chain in the buffer graph. Starting from
//     an input-side SchemaAttribute it follows LineageMapping edges until a
//     vertex carries a SchemaAttributeType edge, whose target is the output
//     column. Chains are bounded by a visited set and a maximum depth.
//   - Resolver writes one derived triple (input column, Process, output
//     column) into the main graph in its own transaction. Triples whose
//     columns are not in the main graph yet are skipped, and existing
//     elements are reused so repeated passes do not duplicate edges.
//   - Tracer answers upstream and downstream lineage queries over the
//     LineageMapping edges of the main graph.
//
// # Basic Usage
//
//	finder := lineage.NewPathFinder(64, logger)
//	out, err := finder.Resolve(ctx, bufferTx, colIn)
//	if lineage.IsChainError(err) {
//	    // skip this candidate
//	}
//
//	resolver := lineage.NewResolver(mainGraph, logger)
//	result, err := resolver.Resolve(ctx, colIn.GUID(), lineage.Process{GUID: "pA", Name: "P1"}, out.GUID())
package lineage
