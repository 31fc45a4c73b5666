package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsbridge/internal/engine/treesitter"
	"tsbridge/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if formatFlag != string(FormatHuman) {
			info := version.Get()
			return printResponse(&info)
		}
		fmt.Println(version.Full())
		if !treesitter.Available() {
			fmt.Println("Engine: unavailable (built without cgo)")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
