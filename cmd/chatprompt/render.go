package main

import (
	"fmt"
	"maps"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skosovsky/chatprompt"
)

// renderedMessage is the YAML output shape of one message.
type renderedMessage struct {
	Type    string           `yaml:"type"`
	Role    string           `yaml:"role,omitempty"`
	Content string           `yaml:"content,omitempty"`
	Parts   []map[string]any `yaml:"parts,omitempty"`
}

func (a *app) renderCmd() *cobra.Command {
	var (
		vars     []string
		varsFile string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "render <name|file.yaml>",
		Short: "Render a prompt with variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := readValues(varsFile, vars)
			if err != nil {
				return err
			}
			tpl, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			msgs, err := tpl.FormatMessagesContext(cmd.Context(), values)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "text":
				_, err = fmt.Fprintln(out, chatprompt.ChatValue(msgs).String())
				return err
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(toRendered(msgs)); err != nil {
					return err
				}
				return enc.Close()
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "variable as key=value (repeatable)")
	cmd.Flags().StringVarP(&varsFile, "vars-file", "f", "", "YAML file with variables")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, yaml)")
	return cmd
}

// readValues merges variables from a YAML file with key=value pairs; pairs win.
func readValues(path string, pairs []string) (map[string]any, error) {
	values := make(map[string]any)
	if path != "" {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the command line
		if err != nil {
			return nil, fmt.Errorf("read vars file: %w", err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("parse vars file: %w", err)
		}
		maps.Copy(values, fromFile)
	}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --var %q: want key=value", p)
		}
		values[k] = v
	}
	return values, nil
}

func toRendered(msgs []chatprompt.Message) []renderedMessage {
	out := make([]renderedMessage, 0, len(msgs))
	for _, m := range msgs {
		r := renderedMessage{Type: string(m.Type), Role: m.Role, Content: m.Content}
		for _, p := range m.Parts {
			switch x := p.(type) {
			case chatprompt.TextPart:
				r.Parts = append(r.Parts, map[string]any{"type": "text", "text": x.Text})
			case chatprompt.ImagePart:
				img := map[string]any{"url": x.URL}
				if x.Detail != "" {
					img["detail"] = x.Detail
				}
				r.Parts = append(r.Parts, map[string]any{"type": "image_url", "image_url": img})
			}
		}
		out = append(out, r)
	}
	return out
}
