package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"probate-resolver/internal/common/config"
	"probate-resolver/internal/resolver/names"
	"probate-resolver/pkg/registry"
)

func newParseOwnerCommand() *cobra.Command {
	var address, state string
	var maxReps int

	cmd := &cobra.Command{
		Use:         "parse-owner OWNER",
		Short:       "Split an owner field into decedent and representatives",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if state == "" {
				state = config.DefaultResolverConfig().DefaultState
			}
			record := names.ParseRecord(args[0], address, state, maxReps)
			return printJSON(cmd.OutOrStdout(), record)
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Property address")
	cmd.Flags().StringVar(&state, "default-state", "", "State used when the address has none")
	cmd.Flags().IntVar(&maxReps, "max-representatives", config.DefaultResolverConfig().MaxRepresentatives, "Representatives kept per record")
	return cmd
}

func newRegistryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "registry",
		Short:       "Inspect activity registries",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "list",
		Short:       "List the activities served by the worker manager",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.Default()
			if err != nil {
				return err
			}
			for _, a := range reg.Activities {
				fmt.Fprintf(cmd.OutOrStdout(), "%-26s %-8s %s\n", a.TaskType, a.Version, a.DisplayName)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate PATH",
		Short:       "Validate a registry file and report activities missing from it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(args[0])
			if err != nil {
				return fmt.Errorf("invalid registry: %w", err)
			}
			var missing []string
			for _, a := range registry.MustDefault().Activities {
				if _, ok := reg.Find(a.TaskType); !ok {
					missing = append(missing, a.TaskType)
				}
			}
			if len(missing) > 0 {
				return fmt.Errorf("registry is missing activities: %s", strings.Join(missing, ", "))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registry OK: %d activities\n", len(reg.Activities))
			return nil
		},
	})
	return cmd
}
