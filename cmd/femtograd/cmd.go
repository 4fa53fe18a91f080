package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/born-ml/femtograd/internal/envconfig"
)

const version = "v0.1.0-dev"

func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: envconfig.LogLevel()}))
}

// NewCLI builds the root command.
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "femtograd",
		Short:         "Tiny reverse-mode autodiff trainer",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if v, _ := cmd.Flags().GetBool("version"); v {
				versionHandler(cmd, args)
				return
			}
			cmd.Print(cmd.UsageString())
		},
	}
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run:   versionHandler,
	}
	trainCmd := newTrainCmd()
	gradcheckCmd := newGradcheckCmd()

	envVars := envconfig.AsMap()
	appendEnvDocs(trainCmd, []envconfig.EnvVar{
		envVars["FEMTOGRAD_DEBUG"],
		envVars["FEMTOGRAD_CONFIG"],
		envVars["FEMTOGRAD_CHECKPOINT"],
		envVars["FEMTOGRAD_WORKERS"],
		envVars["FEMTOGRAD_STEPS"],
		envVars["FEMTOGRAD_BASE_LR"],
		envVars["FEMTOGRAD_SEED"],
	})
	appendEnvDocs(gradcheckCmd, []envconfig.EnvVar{envVars["FEMTOGRAD_DEBUG"]})

	rootCmd.AddCommand(trainCmd, gradcheckCmd, versionCmd)
	return rootCmd
}

func versionHandler(cmd *cobra.Command, _ []string) {
	cmd.Printf("femtograd version %s\n", version)
}
