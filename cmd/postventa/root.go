package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/postventa/internal/config"
	"github.com/JonMunkholm/postventa/internal/core"
	"github.com/JonMunkholm/postventa/internal/logging"
	"github.com/JonMunkholm/postventa/internal/store"
)

// app is the state shared by all subcommands. cfg is set by the root
// PersistentPreRunE.
type app struct {
	cfg *config.Config
	out io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "postventa",
		Short:         "Ingest post-sale inspection workbooks and report on them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			return nil
		},
	}
	root.SetOut(out)

	root.AddCommand(newRunCmd(a), newReportCmd(a), newQueryCmd(a))
	return root
}

// withStore opens the history store for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(store.Store) error) error {
	st, err := store.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer st.Close()

	return fn(st)
}

// describe prefixes err with its user-facing message and code.
func describe(err error) error {
	msg := core.MapError(err)
	return fmt.Errorf("%s [%s]: %w", msg.Message, msg.Code, err)
}
