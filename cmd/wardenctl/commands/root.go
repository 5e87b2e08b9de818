package commands

import (
	"github.com/spf13/cobra"
)

func Execute() error {
	root := &cobra.Command{
		Use:           "wardenctl",
		Short:         "Operator tooling for the Warden device-auth server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(keygenCmd(), deriveCmd())
	return root.Execute()
}
