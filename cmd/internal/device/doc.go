// Package device persists known device identities.
//
// Only the final identity digest is ever stored — raw characteristics never
// reach this package. The digest is the primary key; a Touch on
// authentication reports whether the identity was seen for the first time.
package device
