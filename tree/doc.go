// Package tree provides the in-memory model of a scanned file system subtree. Every
// directory node carries the aggregated size and file count of its subtree, and keeps
// its children sorted by size in descending order.
//
// The main features of this package include:
//
//   - Constructing nodes as entries are discovered, and aggregating a directory once
//     its children are known (AttachChildren, Aggregate).
//   - Looking up, collecting and searching nodes in depth-first order.
//   - Removing a node after an external delete, re-aggregating all its ancestors.
//   - Converting a tree from and to the JSON document exchanged with remote hosts.
//
// A tree is owned by a single scan session. It must not be mutated while a layout
// pass over it is in flight.
package tree
