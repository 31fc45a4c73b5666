package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tsbridge/internal/engine/treesitter"
	"tsbridge/internal/worker"
)

var workerStdio bool

var workerCmd = &cobra.Command{
	Use:    "worker --stdio",
	Short:  "Run a language service worker on stdin/stdout",
	Long:   `Run a worker speaking the worker protocol on stdin and stdout. The supervisor starts this command itself in process worker mode.`,
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !workerStdio {
			return fmt.Errorf("worker: only --stdio is supported")
		}
		if !treesitter.Available() {
			return fmt.Errorf("worker: %w", treesitter.ErrUnavailable)
		}
		ep := worker.NewEndpoint(treesitter.New, logger)
		err := worker.Serve(cmd.Context(), stdio{}, ep, logger)
		if errors.Is(err, cmd.Context().Err()) {
			return nil
		}
		return err
	},
}

func init() {
	workerCmd.Flags().BoolVar(&workerStdio, "stdio", false, "Speak the protocol on stdin/stdout")
	rootCmd.AddCommand(workerCmd)
}

// stdio joins stdin and stdout into one stream.
type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }

func (stdio) Close() error {
	return errors.Join(os.Stdin.Close(), os.Stdout.Close())
}
