package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/goodaideas/goodaideas/internal/domain"
	"github.com/goodaideas/goodaideas/internal/tui"
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Table is the human rendering of a command result.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Empty is printed instead of an empty table.
	Empty string
}

// Formatter writes a command result.
type Formatter interface {
	Format(data any, view Table) error
}

// NewFormatter creates a formatter for format. The table formatter styles
// its output for the user's settings.
func NewFormatter(format string, w io.Writer, settings domain.Settings) (Formatter, error) {
	switch format {
	case FormatJSON:
		return &JSONFormatter{w: w}, nil
	case FormatYAML:
		return &YAMLFormatter{w: w}, nil
	case FormatTable, "":
		return &TableFormatter{w: w, styles: tui.SettingsStyles(settings)}, nil
	default:
		return nil, fmt.Errorf("unknown format: %s (supported: table, json, yaml)", format)
	}
}

// JSONFormatter formats output as JSON.
type JSONFormatter struct {
	w io.Writer
}

// Format writes data as indented JSON.
func (f *JSONFormatter) Format(data any, _ Table) error {
	encoder := json.NewEncoder(f.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct {
	w io.Writer
}

// Format writes data as YAML. Field names follow the JSON tags, so the two
// machine formats agree.
func (f *YAMLFormatter) Format(data any, _ Table) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}

	// JSON is valid YAML; decoding into a node keeps the key order.
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return fmt.Errorf("failed to convert output: %w", err)
	}
	restyle(&node)

	encoder := yaml.NewEncoder(f.w)
	encoder.SetIndent(2)
	if err := encoder.Encode(&node); err != nil {
		return err
	}
	return encoder.Close()
}

// restyle drops the flow style inherited from the JSON source.
func restyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Style == yaml.DoubleQuotedStyle && n.Tag == "!!str" {
		n.Style = 0
	}
	for _, c := range n.Content {
		restyle(c)
	}
}

// TableFormatter renders the Table view with lipgloss.
type TableFormatter struct {
	w      io.Writer
	styles tui.Styles
}

// Format writes view; data is ignored.
func (f *TableFormatter) Format(_ any, view Table) error {
	var b strings.Builder
	if view.Title != "" {
		b.WriteString(f.styles.Title.Render(view.Title))
		b.WriteString("\n")
	}

	if len(view.Rows) == 0 {
		if view.Empty != "" {
			b.WriteString(f.styles.Muted.Render(view.Empty))
			b.WriteString("\n")
		}
		_, err := io.WriteString(f.w, b.String())
		return err
	}

	if len(view.Headers) == 0 {
		// Key/value listing.
		for _, row := range view.Rows {
			if len(row) == 0 {
				continue
			}
			b.WriteString(f.styles.Key.Render(row[0] + ":"))
			if len(row) > 1 {
				b.WriteString(" ")
				b.WriteString(f.styles.Body.Render(strings.Join(row[1:], " ")))
			}
			b.WriteString("\n")
		}
		_, err := io.WriteString(f.w, b.String())
		return err
	}

	header := f.styles.Key.Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(f.styles.Border.GetBorderTopForeground())).
		Headers(view.Headers...).
		Rows(view.Rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	b.WriteString(t.Render())
	b.WriteString("\n")

	_, err := io.WriteString(f.w, b.String())
	return err
}
