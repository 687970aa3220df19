// Package store holds the launch record table. A Store is built once from a
// CSV source and never mutated afterwards; reloads build a new Store and swap
// it into a Live holder.
package store
