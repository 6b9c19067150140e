package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/noisewire/crypto"
)

var (
	keyFile   string
	proxyAddr string
	verbose   bool
)

func Execute() error {
	root := &cobra.Command{
		Use:   "noisewire",
		Short: "Authenticated encrypted point-to-point sessions",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetLevel(logrus.WarnLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}

	root.PersistentFlags().StringVarP(&keyFile, "key", "k", "noisewire.key", "identity key file")
	root.PersistentFlags().StringVar(&proxyAddr, "proxy", "", "SOCKS5 proxy address, required for .onion peers (e.g. 127.0.0.1:9050)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(keygenCmd(), listenCmd(), dialCmd())
	return root.Execute()
}

// loadIdentity reads the hex-encoded private key from the configured key
// file and derives the full key pair.
func loadIdentity() (*crypto.KeyPair, error) {
	data, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key file %s: %w (run 'noisewire keygen' first)", keyFile, err)
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("key file %s is not hex: %w", keyFile, err)
	}
	if len(raw) != crypto.KeySize {
		return nil, fmt.Errorf("key file %s: want %d key bytes, got %d", keyFile, crypto.KeySize, len(raw))
	}

	var secret [crypto.KeySize]byte
	copy(secret[:], raw)
	crypto.ZeroBytes(raw)
	kp, err := crypto.FromSecretKey(secret)
	crypto.ZeroBytes(secret[:])
	return kp, err
}
