package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tonetuner/tonetuner/internal/metrics"
	"github.com/tonetuner/tonetuner/internal/payments"
	"github.com/tonetuner/tonetuner/internal/quota"
	iredis "github.com/tonetuner/tonetuner/internal/redis"
	"github.com/tonetuner/tonetuner/internal/users"
)

var resetLimitsCmd = &cobra.Command{
	Use:   "reset-limits",
	Short: "Run the daily quota reset now",
	Long: `Expires lapsed premium subscriptions and restores every free user's daily
limit to the base limit plus referral bonuses. Safe to run more than once.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		limiter := quota.NewLimiter(quota.NewRepository(pool), quota.Policy{
			BaseLimit:     cfg.Quota.BaseLimit,
			ReferralBonus: cfg.Quota.ReferralBonus,
		})
		n, err := limiter.ResetDaily(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reset %d users\n", n)
		return nil
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print the admin metrics report as JSON",
	Long:  `Queue gauges are null because the queue lives inside the API process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		redisClient, err := iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()

		reporter := metrics.NewReporter(
			metrics.NewRecorder(metrics.NewRedisStore(redisClient)),
			users.NewRepository(pool),
			payments.NewRepository(pool),
			nil,
		)
		report, err := reporter.GetMetrics(ctx)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var referralLinkCmd = &cobra.Command{
	Use:   "referral-link <telegram-id>",
	Short: "Print the invite link for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Bot.Username == "" {
			return fmt.Errorf("BOT_USERNAME is not set")
		}
		fmt.Fprintln(cmd.OutOrStdout(), users.ReferralLink(cfg.Bot.Username, args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetLimitsCmd, metricsCmd, referralLinkCmd)
}
