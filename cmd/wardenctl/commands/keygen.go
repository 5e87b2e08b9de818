package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate random secret material (hex)",
		Long: "Generates cryptographically random bytes for use as\n" +
			"WARDEN_CREDENTIAL_SECRET or the fingerprint peppers.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if n < 16 {
				return fmt.Errorf("refusing to generate fewer than 16 bytes")
			}

			buf := make([]byte, n)
			if _, err := rand.Read(buf); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(buf))
			return nil
		},
	}

	cmd.Flags().IntVar(&n, "bytes", 32, "number of random bytes")
	return cmd
}
