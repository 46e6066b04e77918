package app

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/goShopAuth/jwt"
	"github.com/MrEthical07/goShopAuth/signature"
)

func newSessionTokenCmd() *cobra.Command {
	var (
		shop   string
		userID int64
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "session-token",
		Short: "Mint a signed session token for a shop",
		Long: `Mint an HS256 session token the way the admin host issues them.
Send it as "Authorization: Bearer <token>" to exercise the fetch path.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if shop == "" {
				return fmt.Errorf("--shop is required")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			token, err := jwt.Sign([]byte(cfg.App.APISecret), jwt.NewClaims(cfg.App.APIKey, shop, userID, ttl, time.Now()))
			if err != nil {
				return fmt.Errorf("sign session token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&shop, "shop", "", "Shop domain, e.g. example.myshopify.com")
	cmd.Flags().Int64Var(&userID, "user", 0, "Staff user ID for the sub claim; 0 omits it")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Minute, "Token lifetime")
	return cmd
}

func newWebhookHMACCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "webhook-hmac",
		Short: "Compute X-Shopify-Hmac-Sha256 for a webhook body",
		Long:  "Compute the base64 webhook HMAC over the raw bytes of --file, or stdin when --file is empty or \"-\".",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			body, err := readBody(cmd, file)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signature.Sign([]byte(cfg.App.APISecret), body, signature.Base64))
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the raw body")
	return cmd
}

func readBody(cmd *cobra.Command, file string) ([]byte, error) {
	if file == "" || file == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	body, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func newProxySignatureCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proxy-signature key=value...",
		Short: "Sign app proxy query parameters",
		Long: `Print a query string carrying a valid signature parameter.
Repeat a key to send multiple values; they are joined with commas before signing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			query := url.Values{}
			for _, arg := range args {
				k, v, ok := strings.Cut(arg, "=")
				if !ok || k == "" {
					return fmt.Errorf("invalid parameter %q, want key=value", arg)
				}
				query.Add(k, v)
			}
			signed := signature.SignAppProxy([]byte(cfg.App.APISecret), query)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), signed.Encode())
			return err
		},
	}
	return cmd
}
