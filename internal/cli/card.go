package cli

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/internal/config"
	"github.com/gregLibert/fmcos/pkg/fmcos"
	"github.com/gregLibert/fmcos/pkg/pcsc"
)

func newReadersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "readers",
		Short: "List PC/SC readers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if config.Get().Session.Simulation {
				fmt.Fprintln(cmd.OutOrStdout(), "simulated reader")
				return nil
			}
			readers, err := pcsc.ListReaders()
			if err != nil {
				return err
			}
			for i, name := range readers {
				fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, name)
			}
			return nil
		},
	}
}

func newSelectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "select <file id | name>...",
		Short: "Select files in order",
		Long: `Select each argument in turn. Four hex digits select by file id,
anything else selects by DF name.`,
		Example: `  fmcos select 3f00
  fmcos select 3f00 walletTest`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			for _, arg := range args {
				res, err := selectArg(c.Session, arg)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Describe())
			}
			return nil
		},
	}
}

func selectArg(s *fmcos.Session, arg string) (*fmcos.SelectResult, error) {
	if id, err := hex.DecodeString(arg); err == nil && len(id) == 2 {
		return s.Select(id, nil)
	}
	return s.SelectName([]byte(arg))
}

func newResetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Erase everything under the MF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			if _, err := c.SelectFile(0x3F00); err != nil {
				return err
			}
			if _, err := c.EraseDF(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "card erased")
			return nil
		},
	}
}

func newSetupCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Personalise the wallet application",
		Long: `Create the application DF described by the profile, install its keys and PIN,
then create the two loop files and the wallet and passbook purses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openCard(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			steps, err := setupSteps(c)
			if err != nil {
				return err
			}
			for _, st := range steps {
				if err := st.run(); err != nil {
					return fmt.Errorf("%s: %w", st.name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[+] %s\n", st.name)
			}
			return nil
		},
	}
}

type setupStep struct {
	name string
	run  func() error
}

// setupSteps builds the personalisation sequence. Key records are built up front so
// a bad profile fails before the card is touched.
func setupSteps(c *card) ([]setupStep, error) {
	p := c.profile
	app := p.Application

	type keyStep struct {
		name string
		rec  fmcos.KeyRecord
		err  error
	}
	crypto := func(t fmcos.KeyType, change, version, algorithm byte, key []byte) keyStep {
		rec, err := fmcos.NewCryptoKey(t, 0xF0, change, version, algorithm, key)
		return keyStep{name: t.String(), rec: rec, err: err}
	}
	control := func(t fmcos.KeyType, key []byte) keyStep {
		rec, err := fmcos.NewControlKey(t, 0xF0, 0x02, 0x33, key)
		return keyStep{name: t.String(), rec: rec, err: err}
	}

	var keys []keyStep
	for _, k := range []struct {
		t   fmcos.KeyType
		key []byte
	}{
		{fmcos.KeyDESEncrypt, p.Keys.DESEncrypt},
		{fmcos.KeyDESDecrypt, p.Keys.DESDecrypt},
		{fmcos.KeyDESMAC, p.Keys.DESMAC},
	} {
		if len(k.key) > 0 {
			keys = append(keys, crypto(k.t, 0xF4, 0x05, 0x98, k.key))
		}
	}
	keys = append(keys,
		crypto(fmcos.KeyInternal, 0x02, 0x00, 0x01, p.Keys.Internal),
		control(fmcos.KeyLineProtection, p.Keys.LineProtection),
		control(fmcos.KeyUnlockPIN, p.Keys.UnlockPIN),
		control(fmcos.KeyChangePIN, p.Keys.ChangePIN),
	)
	ext, err := fmcos.NewExternalAuthKey(0xF0, 0x02, 0x44, 0x33, p.Keys.ExternalAuth)
	keys = append(keys,
		keyStep{name: fmcos.KeyExternalAuth.String(), rec: ext, err: err},
		crypto(fmcos.KeyPurchase, 0x02, 0x00, 0x01, p.Keys.Purchase),
		crypto(fmcos.KeyCredit, 0x02, 0x00, 0x01, p.Keys.Credit),
		crypto(fmcos.KeyDebit, 0x02, 0x00, 0x01, p.Keys.Debit),
		crypto(fmcos.KeyOverdraftLimit, 0x02, 0x00, 0x01, p.Keys.Overdraft),
	)
	pin, err := fmcos.NewPINKey(0xF0, 0x01, p.PIN.ErrorCounter, p.PIN.Value)
	keys = append(keys, keyStep{name: fmcos.KeyPIN.String(), rec: pin, err: err})

	steps := []setupStep{
		{"create application", func() error {
			_, err := c.CreateDirectory(fmcos.DirectoryDescriptor{
				FileID:     app.FileID,
				Space:      app.Space,
				CreatePerm: app.CreatePerm,
				ErasePerm:  app.ErasePerm,
				AppID:      app.AppID,
				Name:       []byte(app.Name),
			})
			return err
		}},
		{"select application", func() error {
			_, err := c.SelectName([]byte(app.Name))
			return err
		}},
		{"create key file", func() error {
			_, err := c.CreateKeyFile(fmcos.KeyFileDescriptor{
				FileID:  app.KeyFile.FileID,
				Space:   app.KeyFile.Space,
				DFSID:   app.KeyFile.SID,
				KeyPerm: app.KeyFile.Perm,
			})
			return err
		}},
	}

	for _, k := range keys {
		if k.err != nil {
			return nil, fmt.Errorf("%s key: %w", k.name, k.err)
		}
		rec := k.rec
		keyID := byte(0)
		if rec.KeyType() == fmcos.KeyPIN {
			keyID = p.PIN.KeyID
		}
		steps = append(steps, setupStep{"write " + k.name + " key", func() error {
			_, err := c.WriteKey(fmcos.KeyAdd, keyID, rec, fmcos.ProtectNone, nil)
			return err
		}})
	}

	loops := app.LoopFiles
	for _, id := range []byte{loops.Wallet, loops.Passbook} {
		fileID := uint16(id)
		steps = append(steps, setupStep{fmt.Sprintf("create loop file %04X", fileID), func() error {
			_, err := c.CreateFile(fmcos.FileDescriptor{
				FileID:    fileID,
				Type:      fmcos.FileLoop,
				Size:      loops.Size,
				ReadPerm:  0xF0,
				WritePerm: 0xEF,
				Access:    0xFF,
			})
			return err
		}})
	}

	for _, w := range []fmcos.WalletDescriptor{
		{Balance: fmcos.Wallet, Usage: 0xF0, LoopFileID: loops.Wallet},
		{Balance: fmcos.Passbook, Usage: 0xF0, LoopFileID: loops.Passbook},
	} {
		steps = append(steps, setupStep{"create " + w.Balance.String(), func() error {
			_, err := c.CreateWallet(w)
			return err
		}})
	}
	return steps, nil
}
