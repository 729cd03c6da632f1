// This file is part of sdbootctl
// SPDX-License-Identifier: GPL-3.0-only

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/esptools/sdbootctl/kernelmgr"
	"github.com/esptools/sdbootctl/loaderconf"
)

// app bundles the per-invocation state every command needs. The loader
// store is loaded exactly once and shared, so default-pointer writes from
// different kernels cannot step on each other.
type app struct {
	config *kernelmgr.Config
	store  *loaderconf.Store
	mgr    *kernelmgr.Manager
}

func setup() (*app, error) {
	config, err := kernelmgr.LoadConfig(kernelmgr.ConfPath)
	if err != nil {
		return nil, err
	}
	store, err := kernelmgr.LoadStore(config)
	if err != nil {
		return nil, err
	}
	mgr, err := kernelmgr.NewManager(config, store)
	if err != nil {
		return nil, err
	}
	return &app{config: config, store: store, mgr: mgr}, nil
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sdbootctl",
		Short:         "Kernel version manager for systemd-boot",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newInitCmd(),
		newUpdateCmd(),
		newInstallKernelCmd(),
		newRemoveKernelCmd(),
		newListAvailableCmd(),
		newListInstalledCmd(),
		newSetDefaultCmd(),
		newSetTimeoutCmd(),
	)
	return cmd
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Install systemd-boot and the newest kernel onto the ESP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			return a.mgr.Init()
		},
	}
}

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Install all available kernels and update boot entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			warnIfLowSpace(a.config.ESPMountpoint, cmd.ErrOrStderr())
			return a.mgr.Update()
		},
	}
}

func newInstallKernelCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "install-kernel [target ...]",
		Short: "Install the specified kernels (or choose interactively)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			warnIfLowSpace(a.config.ESPMountpoint, cmd.ErrOrStderr())

			kernels, err := a.resolveOrMultiSelect(args, "Select kernels to install")
			if err != nil {
				return err
			}
			for _, kernel := range kernels {
				if err := a.mgr.Install(kernel, force, askConfirm); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing boot entries without asking")
	return cmd
}

func newRemoveKernelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-kernel [target ...]",
		Short: "Remove the specified kernels from the ESP (or choose interactively)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			var kernels []*kernelmgr.Kernel
			if len(args) > 0 {
				kernels, err = kernelmgr.ResolveTargets(a.config, a.store, a.mgr.Installed(), args)
			} else {
				kernels, err = multiSelectKernels(a.mgr.Installed(), "Select kernels to remove")
			}
			if err != nil {
				return err
			}
			for _, kernel := range kernels {
				if err := a.mgr.Remove(kernel); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newListAvailableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-available",
		Short: "List all available kernels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			a.mgr.PrintAvailable(cmd.OutOrStdout())
			return nil
		},
	}
}

func newListInstalledCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-installed",
		Short: "List all installed kernels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			a.mgr.PrintInstalled(cmd.OutOrStdout())
			return nil
		},
	}
}

func newSetDefaultCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-default [target]",
		Short: "Set the default boot entry",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			var kernel *kernelmgr.Kernel
			if len(args) == 1 {
				kernel, err = kernelmgr.ResolveTarget(a.config, a.store, a.mgr.Installed(), args[0])
			} else {
				kernel, err = selectKernel(a.mgr.Installed(), "Select the default kernel")
			}
			if err != nil {
				return err
			}
			return kernel.SetDefault()
		},
	}
}

func newSetTimeoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-timeout <seconds>",
		Short: "Set the boot menu timeout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid timeout %q: %w", args[0], err)
			}
			a, err := setup()
			if err != nil {
				return err
			}
			return a.mgr.SetTimeout(uint32(timeout))
		},
	}
}

// resolveOrMultiSelect resolves explicit install targets, or falls back to
// an interactive choice over the available kernels.
func (a *app) resolveOrMultiSelect(args []string, prompt string) ([]*kernelmgr.Kernel, error) {
	if len(args) > 0 {
		return kernelmgr.ResolveTargets(a.config, a.store, a.mgr.Available(), args)
	}
	kernels, err := multiSelectKernels(a.mgr.Available(), prompt)
	if errors.Is(err, kernelmgr.ErrEmptySelection) {
		return nil, fmt.Errorf("no kernel found under /usr/lib/modules: %w", err)
	}
	return kernels, err
}
