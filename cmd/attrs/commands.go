package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jwebster45206/story-characters/pkg/attributes"
	"github.com/spf13/cobra"
)

const stdinArg = "-"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "attrs",
		Short:        "Parse and render character attribute text",
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newRenderCmd(), newRoundTripCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var typeName string
	var showStrategy bool

	cmd := &cobra.Command{
		Use:   "parse <text...>",
		Short: "Parse free text into an attribute map",
		Long: `Parse free text into an attribute map and print it as JSON.

Examples:
  attrs parse --type appearance "Hair: brown, long. Feet: smelly"
  echo "brave, curious" | attrs parse --type personality -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := attributes.ParseAttributeType(typeName)
			if err != nil {
				return err
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			parsed, strategy := attributes.ParseDetailed(text, t)
			if showStrategy {
				fmt.Fprintf(cmd.ErrOrStderr(), "strategy: %s\n", strategy)
			}
			return writeJSON(cmd.OutOrStdout(), parsed)
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", string(attributes.TypeAppearance), "attribute type")
	cmd.Flags().BoolVar(&showStrategy, "strategy", false, "report the parse strategy on stderr")
	return cmd
}

func newRenderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render <json|->",
		Short: "Render an attribute map JSON object as text",
		Long: `Render an attribute map JSON object as text.

Examples:
  attrs render '{"hair.color":["Brown"]}'
  attrs parse "Hair: brown" | attrs render -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := inputText(cmd, args)
			if err != nil {
				return err
			}
			// Decoded loosely so entries that are not string lists are
			// coerced the same way the context assembler does.
			var m map[string]any
			if err := json.Unmarshal([]byte(raw), &m); err != nil {
				return fmt.Errorf("invalid attribute map: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), attributes.ValueToText(m))
			return nil
		},
	}
}

func newRoundTripCmd() *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "roundtrip <text...>",
		Short: "Parse text, then render the result back to text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := attributes.ParseAttributeType(typeName)
			if err != nil {
				return err
			}
			text, err := inputText(cmd, args)
			if err != nil {
				return err
			}

			parsed := attributes.ParseAttributeText(text, t)
			if err := writeJSON(cmd.OutOrStdout(), parsed); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), attributes.AttributeToText(parsed))
			return nil
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", string(attributes.TypeAppearance), "attribute type")
	return cmd
}

// inputText joins the positional arguments, or reads stdin when the only
// argument is "-".
func inputText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 && args[0] == stdinArg {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return strings.Join(args, " "), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
