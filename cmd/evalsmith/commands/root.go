// Package commands implements the evalsmith command tree.
package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Makoq/evalsmith/pkg/client"
)

// version is overridable at build time via -ldflags.
var version = "0.1.0"

var (
	suitePath string
	envFile   string
	verbose   bool

	suite *Suite
)

// NewRootCommand builds the evalsmith command tree. Connection settings
// resolve flag over environment: every flag is also readable as
// EVALSMITH_<FLAG> with dashes mapped to underscores, and a .env file is
// loaded into the process environment before resolution.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "evalsmith",
		Short:         "Run and inspect comparative evaluations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile); err != nil {
				return err
			}

			viper.SetEnvPrefix("EVALSMITH")
			viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			viper.AutomaticEnv()

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

			loaded, err := LoadSuite(suitePath)
			if err != nil {
				return err
			}
			suite = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&suitePath, "suite", "", "path to a YAML suite file (default ./evalsmith.yaml when present)")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file (default ./.env when present)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	root.PersistentFlags().String("api-url", "", "platform API base URL")
	root.PersistentFlags().String("api-key", "", "platform API key")

	for _, name := range []string{"api-url", "api-key"} {
		if err := viper.BindPFlag(name, root.PersistentFlags().Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "binding %s flag: %v\n", name, err)
			os.Exit(1)
		}
	}

	root.AddCommand(newCompareCommand())
	root.AddCommand(newDatasetsCommand())
	root.AddCommand(newVersionCommand())

	return root
}

// loadEnvFile loads variables from a dotenv file without overriding the
// real environment. An explicitly named file must exist; the default .env
// is optional.
func loadEnvFile(path string) error {
	if path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}
	return nil
}

// newPlatformClient builds the platform client from the resolved
// connection settings.
func newPlatformClient() (*client.Client, error) {
	apiKey := viper.GetString("api-key")
	if apiKey == "" {
		return nil, fmt.Errorf("platform API key is required (--api-key or EVALSMITH_API_KEY)")
	}
	return client.NewClient(client.Config{
		APIKey:    apiKey,
		Endpoint:  viper.GetString("api-url"),
		Logger:    slog.Default(),
		UserAgent: "evalsmith-cli/" + version,
	})
}
