// Package location tells the storage layer where each solution keeps its
// store, and announces when that place is about to change.
package location
