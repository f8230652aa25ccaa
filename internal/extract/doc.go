// Package extract turns one candidate file into exactly one Outcome.
//
// Outcome is a tagged variant: Success carries at least one non-empty channel
// plus metadata, MetadataOnly carries metadata and no channels, and Failure
// carries the reason the container could not be decoded. Dispatcher selects
// the format arm from the candidate's detected format; every arm runs behind
// a recover so a decoder crash becomes a Failure instead of ending the run.
package extract
