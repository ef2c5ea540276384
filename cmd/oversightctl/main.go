// Package main provides the oversightctl CLI entrypoint.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/roster"
)

var version = "0.1.0"

// globals shared by subcommands
type globals struct {
	rosterPath string
	configPath string
	asJSON     bool
	noColor    bool
}

func (g *globals) loadConfig() (config.Config, error) {
	return config.Load(g.configPath)
}

func (g *globals) loadRoster() (*roster.Static, error) {
	if g.rosterPath == "" {
		return nil, fmt.Errorf("--roster is required")
	}
	data, err := os.ReadFile(g.rosterPath)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	f, err := roster.Parse(data)
	if err != nil {
		return nil, err
	}
	return roster.NewStatic(f), nil
}

func (g *globals) renderer(w io.Writer) *renderer {
	if g.noColor {
		color.NoColor = true
	}
	return &renderer{out: w, json: g.asJSON}
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "oversightctl",
		Short: "Lead oversight toolbox",
		Long: `oversightctl inspects a roster and engine configuration offline.

Use 'oversightctl dashboard <lead-id>' to preview a lead's worker dashboard.
Use 'oversightctl validate <file>' to check a check-in report before submitting it.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&g.rosterPath, "roster", os.Getenv("OVERSIGHT_ROSTER"), "Roster YAML file")
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", os.Getenv("OVERSIGHT_CONFIG"), "Engine configuration YAML file")
	rootCmd.PersistentFlags().BoolVar(&g.asJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(
		dashboardCmd(g),
		classifyCmd(g),
		validateCmd(g),
		alertsCmd(g),
		configCmd(g),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error: %v", err))
		os.Exit(1)
	}
}
