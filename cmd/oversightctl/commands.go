package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/AltairaLabs/lead-oversight/internal/checkin"
	"github.com/AltairaLabs/lead-oversight/internal/config"
	"github.com/AltairaLabs/lead-oversight/internal/dashboard"
	"github.com/AltairaLabs/lead-oversight/internal/geo"
	"github.com/AltairaLabs/lead-oversight/internal/notify"
	"github.com/AltairaLabs/lead-oversight/internal/priority"
	"github.com/AltairaLabs/lead-oversight/internal/prompts"
)

func dashboardCmd(g *globals) *cobra.Command {
	var includeOutOfRange bool

	cmd := &cobra.Command{
		Use:   "dashboard <lead-id>",
		Short: "Preview the prioritized worker dashboard of a lead",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			src, err := g.loadRoster()
			if err != nil {
				return err
			}
			lead, err := src.Lead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			workers, err := src.Workers(cmd.Context())
			if err != nil {
				return err
			}
			prox, err := geo.NewClassifier(cfg.Proximity)
			if err != nil {
				return err
			}

			composer := dashboard.NewComposer(prox, priority.NewClassifier(cfg.Priority), prompts.NewAggregator(cfg.Prompts))
			view, err := composer.Compose(cmd.Context(), dashboard.Request{
				Lead:              *lead,
				Roster:            workers,
				IncludeOutOfRange: includeOutOfRange,
				Now:               time.Now(),
			})
			if err != nil {
				return err
			}
			return g.renderer(cmd.OutOrStdout()).dashboard(view)
		},
	}
	cmd.Flags().BoolVar(&includeOutOfRange, "all", false, "Include out-of-range workers")
	return cmd
}

func classifyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <lead-id> <worker-id>",
		Short: "Show distance, proximity tier and priority tier of a worker",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			src, err := g.loadRoster()
			if err != nil {
				return err
			}
			lead, err := src.Lead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			worker, err := src.Worker(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			prox, err := geo.NewClassifier(cfg.Proximity)
			if err != nil {
				return err
			}

			miles, tier := prox.Between(lead.Location, worker.Location)
			prio, rule := priority.NewClassifier(cfg.Priority).Classify(worker.Performance)
			c := classification{
				LeadID:        lead.ID,
				WorkerID:      worker.ID,
				DistanceMiles: miles,
				Proximity:     tier,
				Selectable:    true,
				Priority:      prio,
				PriorityRule:  rule,
				Travel:        geo.TravelEstimate(miles, cfg.Claims.TravelMinutesPerMile),
			}
			if err := geo.CheckSelectable(tier, false); err != nil {
				c.Selectable = false
				c.SelectionNote = err.Error()
			}
			return g.renderer(cmd.OutOrStdout()).classification(c)
		},
	}
}

// readCheckIn accepts JSON or YAML using the report's JSON field names
func readCheckIn(path string) (checkin.CheckIn, error) {
	var report checkin.CheckIn
	data, err := os.ReadFile(path)
	if err != nil {
		return report, fmt.Errorf("read check-in: %w", err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return report, fmt.Errorf("parse check-in: %w", err)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return report, fmt.Errorf("parse check-in: %w", err)
	}
	if err := json.Unmarshal(normalized, &report); err != nil {
		return report, fmt.Errorf("parse check-in: %w", err)
	}
	return report, nil
}

func validateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a check-in report (JSON or YAML)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := readCheckIn(args[0])
			if err != nil {
				return err
			}
			result := checkin.Validate(report)
			if err := g.renderer(cmd.OutOrStdout()).validation(result); err != nil {
				return err
			}
			return result.Err()
		},
	}
}

func alertsCmd(g *globals) *cobra.Command {
	var workerID string

	cmd := &cobra.Command{
		Use:   "alerts <file>",
		Short: "Print alerts from a JSON-lines alert stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open alerts: %w", err)
			}
			defer f.Close()

			alerts, err := notify.ReadAll(f)
			if err != nil {
				return err
			}
			if workerID != "" {
				filtered := alerts[:0]
				for _, a := range alerts {
					if a.WorkerID == workerID {
						filtered = append(filtered, a)
					}
				}
				alerts = filtered
			}
			return g.renderer(cmd.OutOrStdout()).alerts(alerts)
		},
	}
	cmd.Flags().StringVar(&workerID, "worker", "", "Only alerts of this worker")
	return cmd
}

func configCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
