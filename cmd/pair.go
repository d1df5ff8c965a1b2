package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"zapp/internal/bridge"
	"zapp/internal/session"
)

var pairTimeout time.Duration

var pairCmd = &cobra.Command{
	Use:   "pair <device-id>",
	Short: "Run the pairing handshake for a registered device",
	Long: `Run the vendor pairing handshake. Depending on the platform this waits
for an approval on the TV, a 4-digit PIN (Philips) or a 6-character hex
code (Android TV Remote) typed here.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, st, _, err := openManager()
		if err != nil {
			return err
		}
		defer st.Close()
		defer manager.Close()

		s, err := manager.Session(args[0])
		if err != nil {
			return err
		}
		s.StartPairing()
		return completePairing(manager, args[0])
	},
}

func init() {
	pairCmd.Flags().DurationVar(&pairTimeout, "timeout", 2*time.Minute, "give up after this long")
}

// completePairing drives an in-progress pairing to completion, prompting for
// PIN or code input when the platform needs it
func completePairing(manager *bridge.Manager, id string) error {
	s, err := manager.Session(id)
	if err != nil {
		return err
	}

	timeout := pairTimeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	deadline := time.Now().Add(timeout)
	prompted := false

	for time.Now().Before(deadline) {
		switch s.State() {
		case session.StateDisconnected:
			fmt.Println("Pairing complete")
			return nil

		case session.StatePairingError:
			return fmt.Errorf("pairing failed: %s", s.LastError())

		case session.StatePairingWaitingForUser:
			if !prompted {
				fmt.Println("Accept the pairing request on the TV...")
				prompted = true
			}

		case session.StatePairingWaitingForPin:
			input, err := readPairingInput(s)
			if err != nil {
				return err
			}
			if s.Capabilities().CodeEntry {
				if err := s.SetPairingCode(input); err != nil {
					fmt.Println(err)
				}
			} else {
				if err := s.SubmitPIN(input); err != nil {
					fmt.Println(err)
				}
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return fmt.Errorf("pairing timed out")
}

func readPairingInput(s *session.Session) (string, error) {
	if s.Capabilities().CodeEntry {
		fmt.Print("Enter the 6-character code shown on the TV: ")
	} else {
		fmt.Print("Enter the 4-digit PIN shown on the TV: ")
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
