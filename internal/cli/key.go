package cli

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/chain/eth"
	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/output"
	"github.com/mrz1836/timelock/internal/wallet"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// keyCmd is the parent command for keyed provider key material.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the key of the keyed wallet provider",
	Long: `Generate, import and inspect the mnemonic used by the keyed wallet provider
(wallet.provider: keyed). Saved mnemonics are encrypted with an age passphrase
at wallet.keystore.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Generate a new mnemonic",
	Long: `Generate a fresh BIP39 mnemonic and show the address of its first account
(derivation path wallet.derivation_path). With --save the mnemonic is also
encrypted into the keystore.

Example:
  timelock key new
  timelock key new --words 24 --save`,
	Args: cobra.NoArgs,
	RunE: runKeyNew,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Encrypt an existing mnemonic into the keystore",
	Args:  cobra.NoArgs,
	RunE:  runKeyImport,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var keyAddressCmd = &cobra.Command{
	Use:   "address",
	Short: "Show the account address of the keyed provider",
	Long: `Show the address the keyed provider signs with, derived from
TIMELOCK_MNEMONIC (or the CI test mnemonic) or from the keystore.`,
	Args: cobra.NoArgs,
	RunE: runKeyAddress,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	keyWords int
	keySave  bool
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(keyCmd)
	keyCmd.AddCommand(keyNewCmd, keyImportCmd, keyAddressCmd)

	keyNewCmd.Flags().IntVar(&keyWords, "words", 12, "mnemonic length: 12 or 24")
	keyNewCmd.Flags().BoolVar(&keySave, "save", false, "encrypt the mnemonic into the keystore")
}

type keyJSON struct {
	Mnemonic       string         `json:"mnemonic,omitempty"`
	Address        common.Address `json:"address"`
	DerivationPath string         `json:"derivation_path"`
	Keystore       string         `json:"keystore,omitempty"`
}

func runKeyNew(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	mnemonic, err := wallet.GenerateMnemonic(keyWords)
	if err != nil {
		return tlerr.WithCause(tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{"words": strconv.Itoa(keyWords)}), err)
	}
	addr, err := mnemonicAddress(cc.Config, mnemonic)
	if err != nil {
		return err
	}

	result := keyJSON{Mnemonic: mnemonic, Address: addr, DerivationPath: cc.Config.Wallet.DerivationPath}
	if keySave {
		if result.Keystore, err = saveMnemonic(cc.Config, mnemonic); err != nil {
			return err
		}
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(result)
	}

	w := f.Writer()
	outln(w, "Mnemonic:")
	outln(w, "  "+mnemonic)
	outln(w)
	out(w, "Address (%s): %s\n", result.DerivationPath, addr.Hex())
	if result.Keystore != "" {
		output.Successf(w, "Saved to %s", result.Keystore)
	} else {
		output.Warnf(w, "Write the mnemonic down. It is not stored anywhere unless --save is given.")
	}
	return nil
}

func runKeyImport(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	mnemonic, err := promptMnemonicFn()
	if err != nil {
		return err
	}
	mnemonic = wallet.NormalizeMnemonic(mnemonic)
	addr, err := mnemonicAddress(cc.Config, mnemonic)
	if err != nil {
		return err
	}
	path, err := saveMnemonic(cc.Config, mnemonic)
	if err != nil {
		return err
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(keyJSON{Address: addr, DerivationPath: cc.Config.Wallet.DerivationPath, Keystore: path})
	}
	output.Successf(f.Writer(), "Imported %s into %s", addr.Hex(), path)
	return nil
}

func runKeyAddress(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	c := cc.Config

	mnemonic := c.Mnemonic
	source := "environment"
	if mnemonic == "" {
		path, err := c.HomePath(c.Wallet.Keystore)
		if err != nil {
			return err
		}
		ks := wallet.NewKeystore(path)
		exists, err := ks.Exists()
		if err != nil {
			return err
		}
		if !exists {
			return tlerr.WithSuggestion(
				tlerr.WithDetails(tlerr.ErrNoProvider, map[string]string{"keystore": path}),
				"set "+config.EnvMnemonic+" or run 'timelock key new --save'",
			)
		}
		passphrase, err := cc.Passphrase()
		if err != nil {
			return err
		}
		if mnemonic, err = ks.Load(passphrase); err != nil {
			return err
		}
		source = path
	}

	addr, err := mnemonicAddress(c, mnemonic)
	if err != nil {
		return err
	}
	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(keyJSON{Address: addr, DerivationPath: c.Wallet.DerivationPath, Keystore: source})
	}
	outln(f.Writer(), addr.Hex())
	return nil
}

// mnemonicAddress derives the signing address of mnemonic.
func mnemonicAddress(c *config.Config, mnemonic string) (common.Address, error) {
	key, err := wallet.KeyFromMnemonic(mnemonic, c.Wallet.DerivationPath)
	if err != nil {
		return common.Address{}, err
	}
	return eth.DeriveAddress(key), nil
}

// saveMnemonic encrypts mnemonic into the configured keystore and returns its path.
func saveMnemonic(c *config.Config, mnemonic string) (string, error) {
	path, err := c.HomePath(c.Wallet.Keystore)
	if err != nil {
		return "", err
	}
	ks := wallet.NewKeystore(path)
	exists, err := ks.Exists()
	if err != nil {
		return "", err
	}
	if exists {
		return "", tlerr.WithDetails(wallet.ErrKeystoreExists, map[string]string{"path": path})
	}

	passphrase, err := promptNewPassphraseFn()
	if err != nil {
		return "", err
	}
	if err := ks.Save(mnemonic, passphrase); err != nil {
		return "", err
	}
	return path, nil
}
