package main

import (
	"fmt"

	"github.com/germanamz/wgrib/pkg/routine"
	"github.com/spf13/cobra"
)

func newRoutinesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "routines",
		Short: "List the available decoders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inv, _, err := a.newInvoker(cmd.Context())
			if err != nil {
				return err
			}

			for _, sel := range inv.Selectors() {
				rt, err := inv.Registry().Lookup(sel)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s\t%s\t%s\n", sel, sel.Program(), describe(rt))
			}

			return nil
		},
	}
}

func describe(rt routine.Routine) string {
	switch r := rt.(type) {
	case *routine.Exec:
		return "exec " + r.Path
	case *routine.LinkedRoutine:
		return "linked"
	default:
		return fmt.Sprintf("%T", rt)
	}
}
