package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dyike/FinScopeGo/internal/config"
	"github.com/dyike/FinScopeGo/internal/logging"
	"github.com/dyike/FinScopeGo/internal/pipeline"
)

// NewRootCmd builds the finscope command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	rootCmd := &cobra.Command{
		Use:   "finscope",
		Short: "FinScope - LLM-driven financial instrument enrichment",
		Long: `FinScope enriches free-form prompts about financial instruments into
validated records: identity resolution, news gathering, sentiment
classification and optional fundamental analysis.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if debug, _ := cmd.Flags().GetBool("debug"); debug {
			cfg.Debug = true
		}
	}

	rootCmd.AddCommand(newEnrichCmd(cfg))
	rootCmd.AddCommand(newHistoryCmd(cfg))
	rootCmd.AddCommand(newConfigCmd(cfg))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newEnrichCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich [PROMPT]",
		Short: "Enrich a financial instrument from a free-form prompt",
		Long: `Run the enrichment pipeline for a prompt describing a financial
instrument.
Example: finscope enrich "I bought 10 shares of Apple last week"`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := ""
			if len(args) == 1 {
				prompt = args[0]
			} else {
				var err error
				prompt, err = PromptForRequest()
				if err != nil {
					return err
				}
			}

			if maxLoops, _ := cmd.Flags().GetInt("max-loops"); maxLoops > 0 {
				cfg.MaxLoops = maxLoops
			}
			noExtended, _ := cmd.Flags().GetBool("no-extended")
			analyze, _ := cmd.Flags().GetBool("analyze")

			return runEnrich(cfg, prompt, pipeline.RunOptions{
				WithExtendedData: !noExtended,
				WithAnalysis:     analyze,
			})
		},
	}

	cmd.Flags().Int("max-loops", 0, "Override the iteration cap")
	cmd.Flags().Bool("no-extended", false, "Skip the extended financial data stage")
	cmd.Flags().Bool("analyze", false, "Run the fundamental analysis stage")
	return cmd
}

func runEnrich(cfg *config.Config, prompt string, opts pipeline.RunOptions) error {
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println(RenderRunHeader(prompt))

	result, err := a.driver.Run(ctx, prompt, opts)
	if err != nil {
		return fmt.Errorf("enrichment failed: %w", err)
	}

	fmt.Println(RenderResult(result))
	return nil
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "Show past enrichment runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(cfg.Debug)
			if err != nil {
				return err
			}
			a, err := newApp(context.Background(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if a.history == nil {
				return fmt.Errorf("history store is not available")
			}

			ctx := context.Background()
			if len(args) == 1 {
				runID, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid run id %q", args[0])
				}
				steps, err := a.history.ListSteps(ctx, runID)
				if err != nil {
					return err
				}
				fmt.Println(RenderSteps(runID, steps))
				return nil
			}

			limit, _ := cmd.Flags().GetInt("limit")
			runs, err := a.history.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Println(RenderRuns(runs))
			return nil
		},
	}
	cmd.Flags().Int("limit", 20, "Number of runs to list")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(RenderConfig(cfg))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the config file and keep it in sync with defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager(
				config.WithConfigDir(cfg.ProjectDir),
				config.WithInitialConfig(cfg),
			)
			if err != nil {
				return err
			}
			fmt.Printf("Config file ready at %s\n", mgr.Path())
			return nil
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			fmt.Println("Configuration is valid.")
			if cfg.FMPAPIKey == "" {
				fmt.Println("Warning: FMP_API_KEY not set, entity and news steps will be limited.")
			}
			if cfg.AlphaVantageAPIKey == "" {
				fmt.Println("Warning: ALPHA_VANTAGE_API_KEY not set, no secondary data provider.")
			}
			return nil
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("FinScope v1.0.0")
			fmt.Println("LLM-driven financial instrument enrichment pipeline")
		},
	}
}
