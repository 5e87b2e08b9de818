package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"warden/cmd/internal/fingerprint"
)

func deriveCmd() *cobra.Command {
	var (
		pepperA string
		pepperB string
		addr    string

		chars fingerprint.Characteristics
	)

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Compute a device identity offline",
		Long: "Derives the device identity for a set of characteristics and a\n" +
			"client address using the supplied peppers. Matches the server's\n" +
			"derivation bit for bit, which makes it useful for support lookups.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(pepperA) < 16 || len(pepperB) < 16 {
				return fmt.Errorf("both peppers are required (min 16 bytes each)")
			}

			deriver := fingerprint.NewDeriver(fingerprint.Config{
				PepperA: pepperA,
				PepperB: pepperB,
			})
			id := deriver.Derive(chars, addr)

			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}

	cmd.Flags().StringVar(&pepperA, "pepper-a", "", "primary-stage pepper")
	cmd.Flags().StringVar(&pepperB, "pepper-b", "", "secondary-stage pepper")
	cmd.Flags().StringVar(&addr, "addr", "", "client network address")

	cmd.Flags().StringVar(&chars.ProcessorModel, "cpu-model", "", "processor model string")
	cmd.Flags().StringVar(&chars.ProcessorArchitecture, "cpu-arch", "", "processor architecture")
	cmd.Flags().StringVar(&chars.GraphicsVendor, "gpu-vendor", "", "graphics vendor")
	cmd.Flags().StringVar(&chars.GraphicsRenderer, "gpu-renderer", "", "graphics renderer string")
	cmd.Flags().StringVar(&chars.GraphicsMemory, "gpu-memory", "", "graphics memory")
	cmd.Flags().StringVar(&chars.OSPlatform, "os-platform", "", "operating system platform")
	cmd.Flags().StringVar(&chars.OSArchitecture, "os-arch", "", "operating system architecture")
	cmd.Flags().StringVar(&chars.OSVersion, "os-version", "", "operating system version")
	cmd.Flags().StringVar(&chars.EngineCapabilities, "engine-caps", "", "engine capability string")

	_ = cmd.MarkFlagRequired("pepper-a")
	_ = cmd.MarkFlagRequired("pepper-b")

	return cmd
}
