// Package commands implements the wardenctl operator CLI: secret material
// generation and offline identity derivation.
package commands
