// Package aggregate arranges extraction outcomes into the output hierarchy:
// one group per modality, and inside it one node per descriptor label. Nodes
// carry the channels of a Success outcome or only the metadata of a
// MetadataOnly outcome. Two files that resolve to the same label inside one
// modality are a structural inconsistency and abort the run.
//
// The package performs no I/O.
package aggregate
