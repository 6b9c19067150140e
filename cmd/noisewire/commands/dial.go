package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opd-ai/noisewire/transport"
)

func dialCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "dial <pubkey@host:port>",
		Short: "Connect to a peer and exchange frames from stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadIdentity()
			if err != nil {
				return err
			}

			addr, err := transport.ParseNodeAddress(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			session, err := transport.DialWithConfig(ctx, kp, addr, transport.DialConfig{
				ProxyAddr:        proxyAddr,
				HandshakeTimeout: timeout,
			})
			if err != nil {
				return err
			}
			defer session.Close()

			fmt.Println("Session established; type lines to send, Ctrl-D to quit")

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := session.Send(scanner.Bytes()); err != nil {
					return err
				}
				reply, err := session.Receive()
				if err != nil {
					return err
				}
				fmt.Printf("< %s\n", reply)
			}
			return scanner.Err()
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", transport.DefaultHandshakeTimeout, "dial and handshake timeout")
	return cmd
}
