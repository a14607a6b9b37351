// sealctl is the command-line client: it seals secrets locally, pays
// the proof-of-work cost for creation, and prints share links whose
// fragment the server never sees.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sealed.fyi/internal/client"
)

var (
	serverURL  string
	passphrase string
	ttl        time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "sealctl",
	Short: "Share one-time secrets through a sealed.fyi server",
	Long: `sealctl encrypts secrets on this machine and uploads only ciphertext.
The decryption key lives in the share link's URL fragment, which browsers
never transmit, so the server cannot read what it stores.

Creating a secret solves a short proof-of-work puzzle first; that is the
server's anti-abuse gate and can take a few seconds.`,
	SilenceUsage: true,
}

var createCmd = &cobra.Command{
	Use:   "create [secret]",
	Short: "Encrypt a secret and upload it, printing the share link",
	Long: `Reads the secret from the argument, or from stdin when no argument is
given. Prints the one-time share link and the burn token that allows
early deletion. Keep the burn token if you may want to revoke the link.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var plaintext []byte
		if len(args) == 1 {
			plaintext = []byte(args[0])
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			plaintext = data
		}
		if len(plaintext) == 0 {
			return fmt.Errorf("nothing to share")
		}

		c := client.New(serverURL)
		fmt.Fprintln(os.Stderr, "Solving proof-of-work...")
		result, err := c.Send(cmd.Context(), plaintext, passphrase, ttl)
		if err != nil {
			return err
		}

		fmt.Println(result.Link)
		fmt.Fprintf(os.Stderr, "Burn token: %s\n", result.BurnToken)
		fmt.Fprintf(os.Stderr, "Expires:    %s\n", result.ExpiresAt.Format(time.RFC3339))
		return nil
	},
}

var revealCmd = &cobra.Command{
	Use:   "reveal <link>",
	Short: "Fetch and decrypt a shared secret (consumes it)",
	Long: `Accepts a full share link or just its fragment. This consumes the
secret: nobody can read it again afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL)
		plaintext, err := c.Open(cmd.Context(), args[0], passphrase)
		if err != nil {
			return err
		}
		os.Stdout.Write(plaintext)
		return nil
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn <id> <burn-token>",
	Short: "Delete a secret early",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(serverURL)
		if err := c.Burn(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Burn requested")
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "server base URL")
	rootCmd.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "optional passphrase strengthening the key")
	createCmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "secret lifetime")

	rootCmd.AddCommand(createCmd, revealCmd, burnCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
