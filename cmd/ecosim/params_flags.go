package main

import (
	"fmt"
	"strings"

	"github.com/nvandessel/ecosim/internal/params"
	"github.com/spf13/cobra"
)

// paramFlag maps a parameter key to its flag name.
func paramFlag(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// addParamFlags registers one flag per simulation parameter. Flag defaults
// are informational; only flags set on the command line override the base
// parameters in applyParamFlags.
func addParamFlags(cmd *cobra.Command) {
	for _, r := range params.Bounds() {
		usage := fmt.Sprintf("%s (%g to %g)", r.Label, r.Min, r.Max)
		if r.Integer {
			cmd.Flags().Int(paramFlag(r.Key), int(r.Default), usage)
		} else {
			cmd.Flags().Float64(paramFlag(r.Key), r.Default, usage)
		}
	}
}

// applyParamFlags copies every changed parameter flag onto p.
func applyParamFlags(cmd *cobra.Command, p *params.Parameters) error {
	for _, key := range params.Keys() {
		f := cmd.Flags().Lookup(paramFlag(key))
		if f == nil || !f.Changed {
			continue
		}
		if err := params.Set(p, key, f.Value.String()); err != nil {
			return fmt.Errorf("--%s: %w", f.Name, err)
		}
	}
	return nil
}
