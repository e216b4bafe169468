package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shortcircuit/internal/config"
	"shortcircuit/internal/evescout"
	"shortcircuit/internal/feed"
	"shortcircuit/internal/logger"
	"shortcircuit/internal/navigation"
	"shortcircuit/internal/sde"
	"shortcircuit/internal/tripwire"
	"shortcircuit/internal/version"
)

var (
	configPath string
	dataDir    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "shortcircuit <command>",
	Short:         "Wormhole-aware route planner for New Eden",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			c.DataDir = dataDir
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("SHORTCIRCUIT_CONFIG"), "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "directory holding the reference tables (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadNavigator reads the reference tables and registers the configured
// feeds, Tripwire first.
func loadNavigator(c *config.Config) (*navigation.Navigator, error) {
	data, err := sde.Load(c.DataDir)
	if err != nil {
		return nil, err
	}
	var sources []feed.Source
	if c.Tripwire.Enabled() {
		tw, err := tripwire.NewClient(c.Tripwire.URL, c.Tripwire.Username, c.Tripwire.Password, data, c.Tripwire.Timeout())
		if err != nil {
			return nil, err
		}
		sources = append(sources, tw)
	} else {
		logger.Warn("Tripwire", "No credentials configured, feed disabled")
	}
	if c.EveScout.Enabled {
		sources = append(sources, evescout.NewClient(c.EveScout.URL, data, c.EveScout.Timeout()))
	}
	return navigation.New(data, sources...), nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logger.Error("Main", err.Error())
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and check for a newer release",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("shortcircuit", version.Current)
		if !cfg.CheckVersion {
			return nil
		}
		rel, err := version.Check(cmd.Context(), cfg.VersionURL)
		if err != nil {
			logger.Warn("Version", err.Error())
			return nil
		}
		if rel.Newer {
			logger.Info("Version", fmt.Sprintf("Release %s is available: %s", rel.Tag, rel.URL))
		} else {
			logger.Success("Version", "Up to date")
		}
		return nil
	},
}
