// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"github.com/charmbracelet/huh"

	"github.com/esptools/sdbootctl/kernelmgr"
)

// askConfirm is the interactive Confirmer handed to the core.
var askConfirm kernelmgr.Confirmer = kernelmgr.ConfirmFunc(func(prompt string, def bool) (bool, error) {
	answer := def
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(prompt).
			Value(&answer),
	)).Run()
	return answer, err
})

// selectKernel renders a single-choice prompt over kernels.
func selectKernel(kernels []*kernelmgr.Kernel, title string) (*kernelmgr.Kernel, error) {
	if len(kernels) == 0 {
		return nil, kernelmgr.ErrEmptySelection
	}

	opts := make([]huh.Option[*kernelmgr.Kernel], len(kernels))
	for i, kernel := range kernels {
		opts[i] = huh.NewOption(kernel.Name(), kernel)
	}

	var chosen *kernelmgr.Kernel
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[*kernelmgr.Kernel]().
			Title(title).
			Options(opts...).
			Value(&chosen),
	)).Run()
	return chosen, err
}

// multiSelectKernels renders a multi-choice prompt over kernels.
func multiSelectKernels(kernels []*kernelmgr.Kernel, title string) ([]*kernelmgr.Kernel, error) {
	if len(kernels) == 0 {
		return nil, kernelmgr.ErrEmptySelection
	}

	opts := make([]huh.Option[*kernelmgr.Kernel], len(kernels))
	for i, kernel := range kernels {
		opts[i] = huh.NewOption(kernel.Name(), kernel)
	}

	var chosen []*kernelmgr.Kernel
	err := huh.NewForm(huh.NewGroup(
		huh.NewMultiSelect[*kernelmgr.Kernel]().
			Title(title).
			Filterable(false).
			Options(opts...).
			Value(&chosen),
	)).Run()
	return chosen, err
}
