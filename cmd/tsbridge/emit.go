package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tsbridge/internal/paths"
)

var emitWrite bool

var emitCmd = &cobra.Command{
	Use:   "emit <file>",
	Short: "Transpile a file to JavaScript",
	Long: `Print the JavaScript emitted for a file, or write it next to the source
with --write. Declaration files and noEmit configurations emit nothing.`,
	Args: cobra.ExactArgs(1),
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
		out, err := s.bridge.Emit(s.ctx, doc)
		if err != nil {
			return err
		}
		resp := &EmitResponse{File: doc.URI(), OutputFiles: out.OutputFiles, EmitSkipped: out.EmitSkipped}
		if emitWrite && !out.EmitSkipped {
			for _, f := range out.OutputFiles {
				target := paths.FromURI(f.Name)
				if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
					return err
				}
				text := f.Text
				if f.WriteByteOrderMark {
					text = "\ufeff" + text
				}
				if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
					return err
				}
				logger.Info("Wrote output file", "path", target)
			}
		}
		return printResponse(resp)
	},
}

func init() {
	emitCmd.Flags().BoolVar(&emitWrite, "write", false, "Write the output files to disk")
	rootCmd.AddCommand(emitCmd)
}
