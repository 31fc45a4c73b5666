package main

import (
	"github.com/spf13/cobra"
)

var outlineCmd = &cobra.Command{
	Use:   "outline <file>",
	Short: "List the symbols declared in a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		doc, err := s.open(args[0])
		if err != nil {
			return err
		}
		symbols, err := s.bridge.Registry.DocumentSymbols(s.ctx, doc)
		if err != nil {
			return err
		}
		return printResponse(&OutlineResponse{File: doc.URI(), Symbols: symbols})
	},
}

func init() {
	rootCmd.AddCommand(outlineCmd)
}
