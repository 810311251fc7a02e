// Package workload runs a small multi-goroutine program through the gateway.
//
// Workers draw recorded random values, take turns on an ordered mutex, append
// to a shared log, and intern keys in a stable hash table. While recording,
// the log depends on scheduling; while replaying, the driver reproduces the
// recorded values and lock order, so the log and its digest come out the
// same. The CLI uses it to demonstrate record and verified replay.
package workload
