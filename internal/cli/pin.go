package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/pkg/fmcos"
)

func newVerifyPINCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify-pin",
		Short: "Present a PIN to the wallet application",
		Long: `Present a PIN to the wallet application. Without --pin the PIN is read from
the terminal, or taken from the profile when stdin is not a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			pin, err := readPIN(cmd, "pin", c.profile.PIN.Value)
			if err != nil {
				return err
			}
			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			resp, err := c.VerifyPIN(c.profile.PIN.KeyID, pin)
			if err != nil {
				var se *fmcos.CardStatusError
				if errors.As(err, &se) && resp != nil {
					if tries, ok := resp.Status.RetriesLeft(); ok {
						return fmt.Errorf("wrong PIN, %d tries left: %w", tries, err)
					}
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN accepted")
			return nil
		},
	}
	cmd.Flags().String("pin", "", "PIN in hex, e.g. 123456")
	return cmd
}

func newPINCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Change, reset or unblock the PIN",
	}
	cmd.AddCommand(newPINChangeCommand())
	cmd.AddCommand(newPINResetCommand())
	cmd.AddCommand(newPINUnblockCommand())
	return cmd
}

func newPINChangeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "change",
		Short: "Replace the PIN knowing the current one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			oldPIN, err := readPIN(cmd, "old-pin", c.profile.PIN.Value)
			if err != nil {
				return err
			}
			newPIN, err := readPIN(cmd, "new-pin", nil)
			if err != nil {
				return err
			}
			if _, err := c.ChangePIN(c.profile.PIN.KeyID, oldPIN, newPIN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN changed")
			return nil
		},
	}
	cmd.Flags().String("old-pin", "", "current PIN in hex")
	cmd.Flags().String("new-pin", "", "new PIN in hex")
	return cmd
}

func newPINResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Set a new PIN with the change PIN key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			newPIN, err := readPIN(cmd, "new-pin", nil)
			if err != nil {
				return err
			}
			if _, err := c.ResetPIN(c.profile.PIN.KeyID, newPIN, c.profile.Keys.ChangePIN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN reset")
			return nil
		},
	}
	cmd.Flags().String("new-pin", "", "new PIN in hex")
	return cmd
}

func newPINUnblockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unblock",
		Short: "Unblock the PIN with the unlock key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			pin, err := readPIN(cmd, "pin", c.profile.PIN.Value)
			if err != nil {
				return err
			}
			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			if _, err := c.UnblockPIN(c.profile.PIN.KeyID, pin, c.profile.Keys.UnlockPIN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "PIN unblocked")
			return nil
		},
	}
	cmd.Flags().String("pin", "", "PIN in hex")
	return cmd
}
