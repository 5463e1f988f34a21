package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/pkg/tlv"
)

func newReadBinaryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-binary",
		Short: "Read a binary file of the wallet application",
		Example: `  fmcos read-binary --sfi 0x15 --length 30
  fmcos read-binary --offset 0 --length 8 --protect mac`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			sfi, _ := flags.GetUint8("sfi")
			offset, _ := flags.GetUint16("offset")
			length, _ := flags.GetInt("length")

			p1, p2 := byte(offset>>8), byte(offset)
			if sfi != 0 {
				if sfi > 0x1F || offset > 0xFF {
					return fmt.Errorf("--sfi needs an SFI up to 1F and an offset up to FF")
				}
				p1 = 0x80 | sfi
			}

			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			lp, err := lineProtection(cmd, c.profile)
			if err != nil {
				return err
			}
			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			data, err := c.ReadBinary(p1, p2, length, lp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tlv.Format(data))
			return nil
		},
	}
	cmd.Flags().Uint8("sfi", 0, "short file identifier, current file when 0")
	cmd.Flags().Uint16("offset", 0, "offset in the file")
	cmd.Flags().Int("length", 0, "bytes to read, the whole file when 0")
	cmd.Flags().String("protect", "none", "line protection (none, mac, encrypt)")
	return cmd
}

func newReadRecordCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "read-record",
		Short:   "Read a record of the wallet application",
		Example: `  fmcos read-record --sfi 0x18 --record 1`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			sfi, _ := flags.GetUint8("sfi")
			record, _ := flags.GetUint8("record")
			length, _ := flags.GetInt("length")
			wrapped, _ := flags.GetBool("wrapped")

			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			lp, err := lineProtection(cmd, c.profile)
			if err != nil {
				return err
			}
			if _, err := c.SelectName([]byte(c.profile.Application.Name)); err != nil {
				return err
			}
			data, err := c.ReadRecord(record, sfi, length, wrapped, lp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tlv.Format(data))
			return nil
		},
	}
	cmd.Flags().Uint8("sfi", 0, "short file identifier")
	cmd.Flags().Uint8("record", 1, "record number")
	cmd.Flags().Int("length", 0, "record length, the whole record when 0")
	cmd.Flags().Bool("wrapped", false, "records are F7 TLV wrapped")
	cmd.Flags().String("protect", "none", "line protection (none, mac, encrypt)")
	return cmd
}
