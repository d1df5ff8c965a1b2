package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"zapp/internal/remote"
	"zapp/internal/session"
)

var (
	sendKey     string
	sendText    string
	sendTimeout time.Duration
)

var sendCmd = &cobra.Command{
	Use:   "send <device-id>",
	Short: "Send a key press or text to a paired device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (sendKey == "") == (sendText == "") {
			return fmt.Errorf("exactly one of --key or --text is required")
		}

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

		caps := s.Capabilities()
		if sendKey != "" && !caps.SupportsKey(remote.Key(sendKey)) {
			return fmt.Errorf("key %q is not supported on this platform", sendKey)
		}
		if sendText != "" && !caps.TextInput {
			return fmt.Errorf("text input is not supported on this platform")
		}

		s.Connect()
		deadline := time.Now().Add(sendTimeout)
		for s.State() != session.StateConnected {
			if s.State() == session.StateError {
				return fmt.Errorf("connection failed: %s", s.LastError())
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("connection timed out")
			}
			time.Sleep(100 * time.Millisecond)
		}

		if sendKey != "" {
			s.SendKey(remote.Key(sendKey))
		} else {
			s.SendText(sendText)
		}

		// Give the in-flight command a moment before tearing down
		time.Sleep(500 * time.Millisecond)
		s.Disconnect()
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVar(&sendKey, "key", "", "abstract key name (e.g. volume_up, ok, home)")
	sendCmd.Flags().StringVar(&sendText, "text", "", "text to type into the focused field")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 30*time.Second, "connection timeout")
}
