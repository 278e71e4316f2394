package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/stemsi/exstem-proctor/internal/model"
	"github.com/stemsi/exstem-proctor/internal/session"
	"github.com/stemsi/exstem-proctor/internal/validator"
)

// controlStore is the part of the catalog the control commands use.
type controlStore interface {
	GetSessionConfig(ctx context.Context) (model.SessionConfig, error)
	UpdateSessionConfig(ctx context.Context, req model.UpdateSessionConfigRequest) (*model.SessionConfig, error)
}

func newControlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "control",
		Short: "Show or change the test control record",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current test control record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControlShow(cmd.Context(), current.catalog, cmd.OutOrStdout())
		},
	}

	var req model.UpdateSessionConfigRequest
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the test control record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runControlSet(cmd.Context(), current.catalog, req, cmd.OutOrStdout())
		},
	}
	set.Flags().BoolVar(&req.IsActive, "active", false, "open the test for candidates")
	set.Flags().IntVar(&req.QuestionLimit, "limit", 0, "number of questions served (0 serves all)")
	set.Flags().IntVar(&req.TimeLimitMinutes, "minutes", model.DefaultTimeLimitMinutes, "time limit in minutes")

	cmd.AddCommand(show, set)
	return cmd
}

func runControlShow(ctx context.Context, store controlStore, out io.Writer) error {
	cfg, err := store.GetSessionConfig(ctx)
	if err != nil {
		if errors.Is(err, session.ErrConfigUnavailable) {
			fmt.Fprintln(out, "No control record; the test is closed.")
			return nil
		}
		return err
	}
	printControl(out, cfg)
	return nil
}

func runControlSet(ctx context.Context, store controlStore, req model.UpdateSessionConfigRequest, out io.Writer) error {
	if fields := validator.Struct(req); fields != nil {
		return fmt.Errorf("invalid control record: %s", joinFields(fields))
	}
	cfg, err := store.UpdateSessionConfig(ctx, req)
	if err != nil {
		return err
	}
	printControl(out, *cfg)
	return nil
}

func printControl(out io.Writer, cfg model.SessionConfig) {
	limit := "all"
	if cfg.QuestionLimit > 0 {
		limit = fmt.Sprint(cfg.QuestionLimit)
	}
	fmt.Fprintf(out, "active:     %t\n", cfg.IsActive)
	fmt.Fprintf(out, "questions:  %s\n", limit)
	fmt.Fprintf(out, "time limit: %d min\n", cfg.TimeBudgetSeconds()/60)
	if !cfg.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "updated:    %s\n", cfg.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
	}
}

func joinFields(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for _, msg := range fields {
		parts = append(parts, msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
