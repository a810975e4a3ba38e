package cmd

import (
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/crypto/hd"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/cosmos/go-bip39"
	"github.com/spf13/cobra"

	"github.com/paw-chain/vaultbook/app"
)

const (
	flagMnemonicLength = "mnemonic-length"
	flagHDAccount      = "hd-account"
	flagHDIndex        = "hd-index"
)

// KeysCmd derives devnet addresses from BIP39 mnemonics. The gateway trusts
// the caller header, so no key material is stored.
func KeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Generate and recover devnet addresses from BIP39 mnemonics",
	}

	cmd.PersistentFlags().Uint32(flagHDAccount, 0, "account number for HD derivation")
	cmd.PersistentFlags().Uint32(flagHDIndex, 0, "address index number for HD derivation")

	cmd.AddCommand(newKeyCmd(), recoverKeyCmd())
	return cmd
}

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a mnemonic and print its address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			length, _ := cmd.Flags().GetInt(flagMnemonicLength)
			mnemonic, err := newMnemonic(length)
			if err != nil {
				return err
			}
			addr, err := deriveAddress(cmd, mnemonic)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address: %s\n", addr)
			fmt.Fprintf(out, "\n**IMPORTANT** write this mnemonic phrase in a safe place.\n\n%s\n", mnemonic)
			return nil
		},
	}
	cmd.Flags().Int(flagMnemonicLength, 24, "mnemonic length (12 or 24 words)")
	return cmd
}

func recoverKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover [mnemonic]",
		Short: "Print the address of an existing mnemonic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mnemonic := strings.Join(strings.Fields(args[0]), " ")
			if !bip39.IsMnemonicValid(mnemonic) {
				return fmt.Errorf("invalid mnemonic")
			}
			addr, err := deriveAddress(cmd, mnemonic)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "address: %s\n", addr)
			return err
		},
	}
}

func newMnemonic(words int) (string, error) {
	var bits int
	switch words {
	case 12:
		bits = 128
	case 24:
		bits = 256
	default:
		return "", fmt.Errorf("mnemonic length must be 12 or 24 words")
	}

	entropy := make([]byte, bits/8)
	if _, err := rand.Read(entropy); err != nil {
		return "", fmt.Errorf("failed to generate secure entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

func deriveAddress(cmd *cobra.Command, mnemonic string) (sdk.AccAddress, error) {
	account, _ := cmd.Flags().GetUint32(flagHDAccount)
	index, _ := cmd.Flags().GetUint32(flagHDIndex)
	return DeriveAddress(mnemonic, account, index)
}

// DeriveAddress returns the secp256k1 account address of mnemonic on the
// devnet coin type.
func DeriveAddress(mnemonic string, account, index uint32) (sdk.AccAddress, error) {
	path := hd.CreateHDPath(app.CoinType, account, index)
	derived, err := hd.Secp256k1.Derive()(mnemonic, "", path.String())
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	priv := hd.Secp256k1.Generate()(derived)
	return sdk.AccAddress(priv.PubKey().Address()), nil
}
