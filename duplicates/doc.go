// Package duplicates finds files of a scanned tree that have identical content.
//
// Candidates are narrowed down in three passes, each reading more of the files than
// the one before:
//
//   - Files are grouped by size, which needs no I/O.
//   - Files of the same size are grouped by the hash of their first 4 KiB.
//   - Remaining candidates are grouped by the hash of their whole content, computed
//     by several routines.
//
// Only groups with at least two files survive a pass. Unreadable files are skipped.
package duplicates
