/*
Package snapshot orchestrates durable component state.

A snapshot maps tree positions to state values, so it survives process
restarts even though scope handles do not. The Manager serializes access per
root ID with reference-counted local locks and, when configured, a distributed
lock shared by every replica writing to the same store.
*/
package snapshot
