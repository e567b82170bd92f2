package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zalando/go-keyring"
	"golang.org/x/term"

	"github.com/property-radar/crawl/internal/config"
	"github.com/property-radar/crawl/internal/ui"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the anti-bot proxy API credential",
	Long:  `Auth stores the proxy provider API key in the OS keyring so it never lands in shell history or config files. The key can also be supplied per run via ` + config.ProxyAPIKeyEnv + `.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Store the proxy API key in the OS keyring",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Print("Proxy API key: ")
		key, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return err
		}
		if len(key) == 0 {
			return fmt.Errorf("empty key")
		}
		if err := keyring.Set(config.ProxyAPIKeyService, config.ProxyAPIKeyUser, string(key)); err != nil {
			return err
		}
		fmt.Println(ui.Success("Key stored in OS keyring"))
		return nil
	},
}

var authClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored proxy API key",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := keyring.Delete(config.ProxyAPIKeyService, config.ProxyAPIKeyUser); err != nil {
			return err
		}
		fmt.Println(ui.Success("Key removed"))
		return nil
	},
}

func init() {
	authCmd.AddCommand(authSetCmd, authClearCmd)
	rootCmd.AddCommand(authCmd)
}
