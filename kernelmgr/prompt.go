// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package kernelmgr

// Confirmer answers yes/no questions on behalf of the user. The CLI wires
// an interactive implementation; tests and --force paths use canned
// answers, so nothing in this package ever talks to a terminal.
type Confirmer interface {
	Confirm(prompt string, def bool) (bool, error)
}

// ConfirmFunc adapts a function into a Confirmer.
type ConfirmFunc func(prompt string, def bool) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string, def bool) (bool, error) {
	return f(prompt, def)
}

// DenyAll answers no to every question, the safe non-interactive default.
var DenyAll Confirmer = ConfirmFunc(func(string, bool) (bool, error) {
	return false, nil
})
