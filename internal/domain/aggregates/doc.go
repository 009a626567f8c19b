// Package aggregates defines the write boundaries where invariants must hold
// atomically (lesson interactions, block authoring, live session transitions)
// and the error vocabulary they share.
//
// Contracts stay free of persistence details; implementations live in
// internal/data/aggregates.
package aggregates
