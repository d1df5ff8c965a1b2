package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"zapp/internal/remote"
)

var (
	addName     string
	addPlatform string
	addIP       string
	addMAC      string
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage the device registry",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, st, _, err := openManager()
		if err != nil {
			return err
		}
		defer st.Close()
		defer manager.Close()

		devices, err := manager.List()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No devices. Add one with: zapp devices add")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tIP\tPAIRED\tSTATUS")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%s\n", d.ID, d.Name, d.Platform, d.IP, d.Paired, d.Status)
		}
		return w.Flush()
	},
}

var devicesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a device and start pairing",
	Long: `Register a device and start its pairing handshake. Follow up with
"zapp pair <id>" to complete flows that need a PIN or pairing code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, err := remote.ParsePlatform(addPlatform)
		if err != nil {
			return err
		}

		manager, st, _, err := openManager()
		if err != nil {
			return err
		}
		defer st.Close()
		defer manager.Close()

		dev, err := manager.Create(addName, platform, addIP, addMAC)
		if err != nil {
			return err
		}

		fmt.Printf("Registered %s (%s)\n", dev.Name, dev.ID)
		return completePairing(manager, dev.ID)
	},
}

var devicesRemoveCmd = &cobra.Command{
	Use:   "remove <device-id>",
	Short: "Remove a device from the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, st, _, err := openManager()
		if err != nil {
			return err
		}
		defer st.Close()
		defer manager.Close()

		if err := manager.Remove(args[0]); err != nil {
			return fmt.Errorf("unknown device %s", args[0])
		}
		fmt.Println("Removed", args[0])
		return nil
	},
}

var devicesForgetCmd = &cobra.Command{
	Use:   "forget <device-id>",
	Short: "Discard a device's credentials, keeping the registration",
	Args:  cobra.ExactArgs(1),
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
		s.Forget()
		fmt.Println("Credentials discarded; device must be paired again")
		return nil
	},
}

func init() {
	devicesAddCmd.Flags().StringVar(&addName, "name", "", "device name (required)")
	devicesAddCmd.Flags().StringVar(&addPlatform, "platform", "", "platform: androidtv, androidtv_remote, webos, philips, tizen (required)")
	devicesAddCmd.Flags().StringVar(&addIP, "ip", "", "device IP address (required)")
	devicesAddCmd.Flags().StringVar(&addMAC, "mac", "", "device MAC address (optional, enables wake-on-LAN)")
	_ = devicesAddCmd.MarkFlagRequired("name")
	_ = devicesAddCmd.MarkFlagRequired("platform")
	_ = devicesAddCmd.MarkFlagRequired("ip")

	devicesCmd.AddCommand(devicesListCmd)
	devicesCmd.AddCommand(devicesAddCmd)
	devicesCmd.AddCommand(devicesRemoveCmd)
	devicesCmd.AddCommand(devicesForgetCmd)
}
