package app

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/goShopAuth/config"
)

// loadConfig is swapped in tests.
var loadConfig = config.LoadFromEnv

// NewRootCmd builds the shopauth-dev command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "shopauth-dev",
		Short: "Developer tools for goShopAuth apps",
		Long: `shopauth-dev signs the artifacts the platform would send to an app
(session tokens, webhook deliveries, app proxy queries) using the credentials
in SHOPIFY_API_KEY and SHOPIFY_API_SECRET, and load tests the session store.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().Bool("debug", false, "Enable debug logging")

	root.AddCommand(
		newSessionTokenCmd(),
		newWebhookHMACCmd(),
		newProxySignatureCmd(),
		newLoadTestCmd(),
	)
	return root
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).
		With().Timestamp().Logger()
}
