package commands

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opd-ai/noisewire/crypto"
)

func keygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a static identity key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if _, err := os.Stat(keyFile); err == nil {
					return fmt.Errorf("%s already exists, use --force to overwrite", keyFile)
				}
			}

			kp, err := crypto.GenerateKeyPair()
			if err != nil {
				return err
			}
			defer crypto.WipeKeyPair(kp)

			encoded := hex.EncodeToString(kp.Private[:]) + "\n"
			if err := os.WriteFile(keyFile, []byte(encoded), 0o600); err != nil {
				return fmt.Errorf("write key file: %w", err)
			}

			fmt.Printf("Identity written to %s\n", keyFile)
			fmt.Printf("Public key: %s\n", hex.EncodeToString(kp.Public[:]))
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}
