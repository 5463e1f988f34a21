package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/pkg/fmcos"
)

func newBlockCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "block",
		Short: "Lock the application or the whole card",
	}

	appCmd := &cobra.Command{
		Use:   "app",
		Short: "Lock the wallet application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			permanent, err := cmd.Flags().GetBool("permanent")
			if err != nil {
				return err
			}
			mode := fmcos.BlockTemporary
			if permanent {
				mode = fmcos.BlockPermanent
			}
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			if _, err := c.AppBlock(mode, c.profile.Keys.LineProtection); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "application blocked (%s)\n", mode)
			return nil
		},
	}
	appCmd.Flags().Bool("permanent", false, "block for good instead of until APPLICATION UNBLOCK")
	cmd.AddCommand(appCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "card",
		Short: "Lock the card for good",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			if _, err := c.CardBlock(c.profile.Keys.LineProtection); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "card blocked")
			return nil
		},
	})
	return cmd
}

func newUnblockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock",
		Short: "Unlock a temporarily blocked application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			if _, err := c.AppUnblock(c.profile.Keys.LineProtection); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "application unblocked")
			return nil
		},
	}
}
