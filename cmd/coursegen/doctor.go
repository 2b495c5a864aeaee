package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"coursegen/internal/queue"
	"coursegen/internal/store"
	"coursegen/internal/vector"
)

type check struct {
	name string
	fn   func(ctx context.Context) error
}

var errNotConfigured = errors.New("not configured")

func newDoctorCmd(g *globals) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check storage, queue, vector index and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			checks := []check{
				{"database", func(ctx context.Context) error {
					st, err := store.Open(g.cfg.Database.DSN)
					if err != nil {
						return err
					}
					defer st.Close()
					return st.Ping(ctx)
				}},
				{"redis", func(ctx context.Context) error {
					if g.cfg.Redis.URL == "" {
						return errNotConfigured
					}
					q, err := queue.New(g.cfg.Redis.URL, g.cfg.Redis.Queue)
					if err != nil {
						return err
					}
					defer q.Close()
					return q.Ping(ctx)
				}},
				{"qdrant", func(ctx context.Context) error {
					if g.cfg.Qdrant.URL == "" {
						return errNotConfigured
					}
					return vector.NewQdrant(g.cfg.Qdrant.URL, g.cfg.Qdrant.Collection).Ping(ctx)
				}},
			}
			results := runChecks(ctx, checks)
			out := cmd.OutOrStdout()
			for i, c := range checks {
				if results[i] != nil {
					fmt.Fprintf(out, "%s: FAIL (%v)\n", c.name, results[i])
					continue
				}
				fmt.Fprintf(out, "%s: OK\n", c.name)
			}

			o, err := g.chain(ctx)
			if err != nil {
				fmt.Fprintf(out, "providers: FAIL (%v)\n", err)
				return nil
			}
			printProviders(out, o.Providers(ctx))
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "overall check timeout")
	return cmd
}

// runChecks runs every check concurrently; results[i] belongs to checks[i].
func runChecks(ctx context.Context, checks []check) []error {
	results := make([]error, len(checks))
	var eg errgroup.Group
	for i, c := range checks {
		eg.Go(func() error {
			results[i] = c.fn(ctx)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}
