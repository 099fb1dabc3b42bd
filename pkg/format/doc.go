// Package format defines the persisted document model of a flow chart and the
// codecs that write it.
//
// The model is self-describing: every record carries its GUID and a type
// identifier, nested records carry the GUID of their owner, and connectors refer
// to their ports by GUID. YAML is the canonical syntax; JSON and MessagePack write
// the same records, and any codec can be wrapped with zstd compression.
package format
