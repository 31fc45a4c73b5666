package main

import (
	"github.com/spf13/cobra"

	"tsbridge/internal/editor"
	"tsbridge/internal/model"
)

// positionQuery answers one position-based request against an open document.
type positionQuery func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error)

func newPositionCommand(use, short string, query positionQuery) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <file> <line> <col>",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1], args[2])
			if err != nil {
				return err
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			doc, err := s.open(args[0])
			if err != nil {
				return err
			}
			resp, err := query(s, doc, pos, PositionRequest{File: doc.URI(), Position: pos})
			if err != nil {
				return err
			}
			return printResponse(resp)
		},
	}
}

var completeResolve bool

func init() {
	rootCmd.AddCommand(newPositionCommand("hover", "Show type information at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			h, err := s.bridge.Registry.Hover(s.ctx, doc, pos)
			return &HoverResponse{PositionRequest: req, Hover: h}, err
		}))

	rootCmd.AddCommand(newPositionCommand("definition", "Find the definition of the symbol at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			locs, err := s.bridge.Registry.Definition(s.ctx, doc, pos)
			return &LocationsResponse{PositionRequest: req, Kind: "definitions", Locations: locs}, err
		}))

	rootCmd.AddCommand(newPositionCommand("references", "Find references to the symbol at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			locs, err := s.bridge.Registry.References(s.ctx, doc, pos)
			return &LocationsResponse{PositionRequest: req, Kind: "references", Locations: locs}, err
		}))

	rootCmd.AddCommand(newPositionCommand("highlights", "List the occurrences of the symbol at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			hl, err := s.bridge.Registry.DocumentHighlights(s.ctx, doc, pos)
			return &HighlightsResponse{PositionRequest: req, Highlights: hl}, err
		}))

	rootCmd.AddCommand(newPositionCommand("signature", "Show signature help for the call at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			help, err := s.bridge.Registry.SignatureHelp(s.ctx, doc, pos)
			return &SignatureResponse{PositionRequest: req, Help: help}, err
		}))

	completeCmd := newPositionCommand("complete", "List completions at a position",
		func(s *session, doc *model.Document, pos editor.Position, req PositionRequest) (interface{}, error) {
			list, err := s.bridge.Registry.Completions(s.ctx, doc, pos)
			if err != nil || list == nil || !completeResolve {
				return &CompletionResponse{PositionRequest: req, Completions: list}, err
			}
			for i, item := range list.Items {
				resolved, err := s.bridge.Registry.ResolveCompletion(s.ctx, doc, item)
				if err != nil {
					return nil, err
				}
				list.Items[i] = resolved
			}
			return &CompletionResponse{PositionRequest: req, Completions: list}, nil
		})
	completeCmd.Flags().BoolVar(&completeResolve, "resolve", false, "Resolve details and documentation of every item")
	rootCmd.AddCommand(completeCmd)
}
