package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opd-ai/noisewire/transport"
)

func listenCmd() *cobra.Command {
	var bindAddr string

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Accept authenticated encrypted sessions and echo frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadIdentity()
			if err != nil {
				return err
			}

			listener, err := transport.Listen(bindAddr, kp)
			if err != nil {
				return err
			}
			defer listener.Close()

			fmt.Printf("Listening on %s\n", listener.Addr())
			fmt.Printf("Peers dial: %s@%s\n", hex.EncodeToString(kp.Public[:]), listener.Addr())

			for {
				session, err := listener.Accept()
				if err != nil {
					logrus.WithError(err).Warn("inbound session failed")
					continue
				}
				go echoSession(session)
			}
		},
	}

	cmd.Flags().StringVarP(&bindAddr, "bind", "b", "0.0.0.0:9735", "address to listen on")
	return cmd
}

// echoSession reads frames from a session and sends each one back until the
// peer disconnects.
func echoSession(session *transport.Session) {
	defer session.Close()

	remote := hex.EncodeToString(session.RemoteIdentity())
	fmt.Printf("Session from %s (%s)\n", session.RemoteAddr(), remote[:16])

	for {
		payload, err := session.Receive()
		if err != nil {
			fmt.Printf("Session %s closed: %v\n", remote[:16], err)
			return
		}
		if err := session.Send(payload); err != nil {
			fmt.Printf("Session %s closed: %v\n", remote[:16], err)
			return
		}
	}
}
