package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrz1836/timelock/internal/chain"
	"github.com/mrz1836/timelock/internal/chain/eth/rpc"
	"github.com/mrz1836/timelock/internal/wallet"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// minPassphraseLength is the shortest keystore passphrase accepted.
const minPassphraseLength = 8

//nolint:gochecknoglobals // Prompt functions are swapped in tests
var (
	promptPassphraseFn    = promptPassphrase
	promptNewPassphraseFn = promptNewPassphrase
	promptConfirmFn       = promptConfirm
	promptMnemonicFn      = promptMnemonic
)

// promptSecret prompts for a value with hidden input.
func promptSecret(prompt string) (string, error) {
	out(os.Stderr, "%s", prompt)

	secret, err := term.ReadPassword(syscall.Stdin)
	outln(os.Stderr) // Add newline after hidden input

	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return string(secret), nil
}

// promptPassphrase asks for the keystore passphrase.
func promptPassphrase() (string, error) {
	return promptSecret("Keystore passphrase: ")
}

// promptNewPassphrase asks for a new keystore passphrase twice.
func promptNewPassphrase() (string, error) {
	passphrase, err := promptSecret("New keystore passphrase: ")
	if err != nil {
		return "", err
	}
	if len(passphrase) < minPassphraseLength {
		return "", tlerr.WithSuggestion(
			tlerr.ErrInvalidInput,
			fmt.Sprintf("passphrase must be at least %d characters", minPassphraseLength),
		)
	}

	confirm, err := promptSecret("Confirm passphrase: ")
	if err != nil {
		return "", err
	}
	if passphrase != confirm {
		return "", tlerr.WithSuggestion(tlerr.ErrInvalidInput, "passphrases do not match")
	}
	return passphrase, nil
}

// promptConfirm asks a y/N question on stderr.
func promptConfirm(question string) bool {
	out(os.Stderr, "%s [y/N]: ", question)

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}

// promptMnemonic reads a mnemonic phrase from one line of stdin.
func promptMnemonic() (string, error) {
	outln(os.Stderr, "Enter the mnemonic phrase (all words on one line):")
	return readLine(os.Stdin)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", tlerr.WithSuggestion(tlerr.ErrInvalidInput, "no input provided")
	}
	return strings.TrimSpace(line), nil
}

// approver returns the transaction approver of the keyed provider.
func (c *CommandContext) approver() wallet.Approver {
	if c.Approver != nil {
		return c.Approver
	}
	if c.Config.Wallet.AutoApprove {
		return wallet.AutoApprove
	}
	return wallet.ApproverFunc(func(_ context.Context, req rpc.TxRequest) (bool, error) {
		out(os.Stderr, "%s", describeTx(req))
		return promptConfirmFn("Sign and send this transaction?"), nil
	})
}

// describeTx renders a transaction request for the approval prompt.
func describeTx(req rpc.TxRequest) string {
	to := "(contract creation)"
	if req.To != nil {
		to = req.To.Hex()
	}
	value := "0"
	if req.Value != nil {
		value = chain.FormatEther(req.Value.ToInt())
	}

	var b strings.Builder
	b.WriteString("\nTransaction request:\n")
	fmt.Fprintf(&b, "  From:      %s\n", req.From.Hex())
	fmt.Fprintf(&b, "  To:        %s\n", to)
	fmt.Fprintf(&b, "  Value:     %s ETH\n", value)
	fmt.Fprintf(&b, "  Gas limit: %d\n", uint64(req.Gas))
	if req.GasPrice != nil {
		fmt.Fprintf(&b, "  Gas price: %s wei\n", req.GasPrice.ToInt().String())
	}
	fmt.Fprintf(&b, "  Data:      %d bytes\n", len(req.Data))
	return b.String()
}
