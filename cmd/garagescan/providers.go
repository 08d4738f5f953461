package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/garagescan/internal/llm"
	"github.com/platinummonkey/garagescan/internal/types"
)

// providersCmd represents the providers command
var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Show the configured providers",
	Long:  `Show the provider preference list with models, endpoints and redacted keys.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		out := cmd.OutOrStdout()
		for i, p := range a.cfg.Providers {
			model := p.Model
			if model == "" {
				model = llm.DefaultModel(p.Provider) + " (default)"
			}
			endpoint := a.cfg.Endpoints[p.Provider]
			if endpoint == "" {
				endpoint = "default"
			}
			fmt.Fprintf(out, "%d. %s\n   model: %s\n   endpoint: %s\n   key: %s\n",
				i+1, p.Provider, model, endpoint, redactedKey(p.APIKey))
		}
		return nil
	},
}

// providersCheckCmd represents the providers check command
var providersCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the API key of every configured provider",
	Long: `Send a minimal request to each provider that has an API key and report
whether the key and model are accepted. The tracker is probed too when
tracker-url is configured.`,
	RunE: runProvidersCheck,
}

func init() {
	rootCmd.AddCommand(providersCmd)
	providersCmd.AddCommand(providersCheckCmd)
}

func runProvidersCheck(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	active := a.cfg.ActiveProviders()
	if len(active) == 0 {
		return fmt.Errorf("no provider configured")
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, p := range active {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		start := time.Now()
		err := llm.HealthCheck(ctx, p, a.cfg.Endpoints[p.Provider])
		cancel()

		if err != nil {
			failed++
			fmt.Fprintf(out, "✗ %s: %v\n", p.Provider, err)
			continue
		}
		fmt.Fprintf(out, "✓ %s (%v)\n", p.Provider, time.Since(start).Round(time.Millisecond))
	}

	if a.cfg.TrackerEnabled() {
		client, err := a.trackerClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		err = client.HealthCheck(ctx)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "✗ tracker: %v\n", err)
			return err
		}
		fmt.Fprintf(out, "✓ tracker (%s)\n", a.cfg.TrackerURL)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d providers failed", failed, len(active))
	}
	return nil
}

func redactedKey(key string) string {
	if key == "" {
		return "not set (provider skipped)"
	}
	return types.RedactSecret(key)
}
