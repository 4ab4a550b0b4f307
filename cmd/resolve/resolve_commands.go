package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"probate-resolver/internal/app"
	"probate-resolver/internal/models"
	"probate-resolver/internal/resolver/names"
)

func newTargetCommand(ctx *commandContext) *cobra.Command {
	var target models.SearchTarget

	cmd := &cobra.Command{
		Use:   "target NAME",
		Short: "Resolve a single person",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target.PersonName = args[0]
			target.State = strings.ToUpper(target.State)
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				out := a.Engine.Resolve(cmd.Context(), target)
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}

	cmd.Flags().StringVar(&target.AssociatedName, "associated", "", "Decedent whose estate the person represents")
	cmd.Flags().StringVar(&target.City, "city", "", "City hint")
	cmd.Flags().StringVar(&target.State, "state", "", "Two-letter state hint")
	cmd.Flags().StringVar(&target.PropertyAddress, "address", "", "Property address, used by the address pivot")
	return cmd
}

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "record OWNER",
		Short: "Parse an owner field and resolve each representative",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				r := a.Config.Resolver
				record := names.ParseRecord(args[0], address, r.DefaultState, r.MaxRepresentatives)
				rec := a.Engine.ResolveRecord(cmd.Context(), record)
				deliver(cmd, a, rec)
				return printJSON(cmd.OutOrStdout(), rec)
			})
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Property address")
	return cmd
}

// batchLine is one JSON line of a batch file.
type batchLine struct {
	OwnerName       string `json:"ownerName"`
	PropertyAddress string `json:"propertyAddress"`
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Resolve owner records from a JSON-lines file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readBatch(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withApp(cmd.Context(), func(a *app.App) error {
				r := a.Config.Resolver
				records := make([]models.OwnerRecord, len(lines))
				for i, l := range lines {
					records[i] = names.ParseRecord(l.OwnerName, l.PropertyAddress, r.DefaultState, r.MaxRepresentatives)
				}

				start := time.Now()
				results := a.Engine.ResolveAll(cmd.Context(), records)
				found := 0
				for _, rec := range results {
					deliver(cmd, a, rec)
					if rec.AnyFound() {
						found++
					}
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%d/%d records resolved in %s\n", found, len(results), time.Since(start).Round(time.Millisecond))
				return printJSON(cmd.OutOrStdout(), results)
			})
		},
	}
	return cmd
}

func readBatch(cmd *cobra.Command, path string) ([]batchLine, error) {
	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var out []batchLine
	scanner := bufio.NewScanner(in)
	n := 0
	for scanner.Scan() {
		n++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var l batchLine
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, l)
	}
	return out, scanner.Err()
}

func deliver(cmd *cobra.Command, a *app.App, rec models.RecordOutcome) {
	if a.Sink.Len() == 0 {
		return
	}
	if err := a.Sink.Record(cmd.Context(), rec); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "record %s: %v\n", rec.ID, err)
	}
}
