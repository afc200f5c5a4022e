// Package persist stores finished chat exchanges. The decoder hands
// exchanges to a Queue and never waits for the write.
package persist
