package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gregLibert/fmcos/internal/logging"
	"github.com/gregLibert/fmcos/pkg/fmcos"
	"github.com/gregLibert/fmcos/pkg/tlv"
)

func newBalanceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the wallet and passbook balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			for _, b := range []fmcos.BalanceType{fmcos.Wallet, fmcos.Passbook} {
				balance, err := c.GetBalance(b)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-9s %d\n", b.String()+":", balance)
			}
			return nil
		},
	}
}

// addPurseFlags registers the flags shared by the purse commands.
func addPurseFlags(cmd *cobra.Command, withBalance bool) {
	cmd.Flags().Uint32("amount", 0, "amount in the smallest currency unit")
	if withBalance {
		cmd.Flags().String("balance", "wallet", "purse to use (wallet, passbook)")
	}
	_ = cmd.MarkFlagRequired("amount")
}

func balanceFlag(cmd *cobra.Command) (fmcos.BalanceType, error) {
	name, err := cmd.Flags().GetString("balance")
	if err != nil {
		return 0, err
	}
	return fmcos.ParseBalanceType(name)
}

func newCreditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "credit",
		Short:   "Load money into a purse",
		Example: `  fmcos credit --balance wallet --amount 1000`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, true)
		},
	}
	addPurseFlags(cmd, true)
	return cmd
}

func newDebitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debit",
		Short: "Transfer money from the passbook to an online account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLoad(cmd, false)
		},
	}
	addPurseFlags(cmd, false)
	return cmd
}

func runLoad(cmd *cobra.Command, credit bool) error {
	amount, err := cmd.Flags().GetUint32("amount")
	if err != nil {
		return err
	}
	req := fmcos.LoadRequest{Balance: fmcos.Passbook, Amount: amount}
	if credit {
		if req.Balance, err = balanceFlag(cmd); err != nil {
			return err
		}
	}

	c, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	p := c.profile
	req.KeyID = p.KeyID
	req.Terminal = p.Terminal
	if credit {
		req.Key, req.InternalKey = p.Keys.Credit, p.Keys.Internal
		return report(cmd.OutOrStdout(), "credit")(c.Credit(req))
	}
	req.Key = p.Keys.Debit
	return report(cmd.OutOrStdout(), "debit")(c.Debit(req))
}

func newPurchaseCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Spend money from a purse",
		Long: `Spend money from the wallet or the passbook. With --compound the purchase
is run as a compound application purchase, which always uses the wallet.`,
		Example: `  fmcos purchase --balance wallet --amount 50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			compound, err := cmd.Flags().GetBool("compound")
			if err != nil {
				return err
			}
			return runPurchase(cmd, func(c *card, req fmcos.PurchaseRequest) (*fmcos.TransactionResult, error) {
				if compound {
					return c.CompoundPurchase(req)
				}
				return c.Purchase(req)
			})
		},
	}
	addPurseFlags(cmd, true)
	cmd.Flags().Bool("compound", false, "run a compound application purchase")
	cmd.Flags().String("serial", "", "4-byte terminal transaction serial in hex, random when empty")
	return cmd
}

func newWithdrawCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw cash from the passbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPurchase(cmd, func(c *card, req fmcos.PurchaseRequest) (*fmcos.TransactionResult, error) {
				return c.Withdraw(req)
			})
		},
	}
	addPurseFlags(cmd, false)
	cmd.Flags().String("serial", "", "4-byte terminal transaction serial in hex, random when empty")
	return cmd
}

func runPurchase(cmd *cobra.Command, do func(*card, fmcos.PurchaseRequest) (*fmcos.TransactionResult, error)) error {
	amount, err := cmd.Flags().GetUint32("amount")
	if err != nil {
		return err
	}
	req := fmcos.PurchaseRequest{Balance: fmcos.Passbook, Amount: amount}
	if cmd.Flags().Lookup("balance") != nil {
		if req.Balance, err = balanceFlag(cmd); err != nil {
			return err
		}
	}
	if serial, _ := cmd.Flags().GetString("serial"); serial != "" {
		if req.Serial, err = parseHex("serial", serial); err != nil {
			return err
		}
	}

	c, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer c.close()

	p := c.profile
	req.KeyID = p.KeyID
	req.Terminal = p.Terminal
	req.Key, req.InternalKey = p.Keys.Purchase, p.Keys.Internal
	return report(cmd.OutOrStdout(), cmd.Name())(do(c, req))
}

func newOverdraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overdraft",
		Short: "Change the passbook overdraft limit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, err := cmd.Flags().GetUint32("limit")
			if err != nil {
				return err
			}
			c, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer c.close()

			p := c.profile
			return report(cmd.OutOrStdout(), "overdraft")(c.UpdateOverdraftLimit(fmcos.OverdraftRequest{
				KeyID:       p.KeyID,
				Limit:       limit,
				Terminal:    p.Terminal,
				Key:         p.Keys.Overdraft,
				InternalKey: p.Keys.Internal,
			}))
		},
	}
	cmd.Flags().Uint32("limit", 0, "new overdraft limit, at most 0xFFFFFF")
	_ = cmd.MarkFlagRequired("limit")
	return cmd
}

// report prints a finished transaction and logs its outcome either way.
func report(out io.Writer, op string) func(*fmcos.TransactionResult, error) error {
	return func(res *fmcos.TransactionResult, err error) error {
		if err != nil {
			var te *fmcos.TransactionError
			ambiguous := errors.As(err, &te) && te.Ambiguous()
			logging.LogFailure(op, err, ambiguous)
			return err
		}
		logging.LogTransaction(res.Flow, res.State.String(), res.OldBalance, res.NewBalance, res.TAC, res.Simulated)

		if res.Simulated {
			fmt.Fprintf(out, "%s: simulated, nothing sent to a card\n", op)
			return nil
		}
		fmt.Fprintf(out, "%-12s %s\n", "flow:", res.Flow)
		fmt.Fprintf(out, "%-12s %d\n", "amount:", res.Amount)
		fmt.Fprintf(out, "%-12s %d\n", "old balance:", res.OldBalance)
		fmt.Fprintf(out, "%-12s %d\n", "new balance:", res.NewBalance)
		fmt.Fprintf(out, "%-12s %s\n", "serial:", tlv.Format(res.CardSerial))
		fmt.Fprintf(out, "%-12s %s\n", "tac:", tlv.Format(res.TAC))
		return nil
	}
}
