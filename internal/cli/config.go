package cli

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/cobra"

	"github.com/mrz1836/timelock/internal/config"
	"github.com/mrz1836/timelock/internal/output"
	tlerr "github.com/mrz1836/timelock/pkg/errors"
)

// maxConfigKeyTypoDistance bounds the edit distance of "did you mean" hints.
const maxConfigKeyTypoDistance = 3

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and modify timelock configuration settings.`,
}

// configInitCmd initializes the configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long: `Create a default configuration file at <home>/config.yaml.

If a configuration file already exists, this command will not overwrite it
unless --force is specified.

Example:
  timelock config init
  timelock config init --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

// configShowCmd shows the current configuration.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective configuration, after environment and flag overrides.
Secrets from the environment are never shown.

Example:
  timelock config show
  timelock config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

// configGetCmd gets a specific configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "Get a configuration value",
	Long: `Get a specific configuration value by its dot-separated path.

Examples:
  timelock config get network
  timelock config get networks.sepolia.chain_id
  timelock config get transaction.gas_price`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigGet,
}

// configSetCmd sets a configuration value.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configSetCmd = &cobra.Command{
	Use:   "set <path> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value by its dot-separated path and save the file.
Setting networks.<name>.rpc for a new name adds that network.

Examples:
  timelock config set network sepolia
  timelock config set wallet.provider keyed
  timelock config set networks.anvil.rpc http://127.0.0.1:8545`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var configForce bool

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd, configGetCmd, configSetCmd)

	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite existing configuration")
}

// configKey is one addressable setting.
type configKey struct {
	path string
	get  func(c *config.Config) string
	set  func(c *config.Config, value string) error
}

// configKeys lists the fixed settings in display order. Per-network keys
// are resolved by networkKey.
func configKeys() []configKey {
	return []configKey{
		{"home", func(c *config.Config) string { return c.Home }, setString(func(c *config.Config) *string { return &c.Home })},
		{"network", func(c *config.Config) string { return c.Network }, setNetwork},
		{"wallet.provider", func(c *config.Config) string { return c.Wallet.Provider }, setProvider},
		{"wallet.provider_url", func(c *config.Config) string { return c.Wallet.ProviderURL }, setURL(func(c *config.Config) *string { return &c.Wallet.ProviderURL })},
		{"wallet.keystore", func(c *config.Config) string { return c.Wallet.Keystore }, setString(func(c *config.Config) *string { return &c.Wallet.Keystore })},
		{"wallet.derivation_path", func(c *config.Config) string { return c.Wallet.DerivationPath }, setString(func(c *config.Config) *string { return &c.Wallet.DerivationPath })},
		{"wallet.auto_approve", func(c *config.Config) string { return strconv.FormatBool(c.Wallet.AutoApprove) }, setBool(func(c *config.Config) *bool { return &c.Wallet.AutoApprove })},
		{"contract.artifact", func(c *config.Config) string { return c.Contract.Artifact }, setString(func(c *config.Config) *string { return &c.Contract.Artifact })},
		{"transaction.gas_limit", func(c *config.Config) string { return strconv.FormatUint(c.Transaction.GasLimit, 10) }, setGasLimit},
		{"transaction.gas_price", func(c *config.Config) string { return c.Transaction.GasPrice }, setGasPrice},
		{"transaction.confirm_calls", func(c *config.Config) string { return strconv.FormatBool(c.Transaction.ConfirmCalls) }, setBool(func(c *config.Config) *bool { return &c.Transaction.ConfirmCalls })},
		{"transaction.deploy_nonce_offset", func(c *config.Config) string { return strconv.FormatUint(c.Transaction.DeployNonceOffset, 10) }, setNonceOffset},
		{"transaction.receipt_attempts", func(c *config.Config) string { return strconv.Itoa(c.Transaction.ReceiptAttempts) }, setPositiveInt(func(c *config.Config) *int { return &c.Transaction.ReceiptAttempts })},
		{"rpc.rate_limit", func(c *config.Config) string { return strconv.FormatFloat(c.RPC.RateLimit, 'f', -1, 64) }, setRateLimit},
		{"rpc.retry_attempts", func(c *config.Config) string { return strconv.Itoa(c.RPC.RetryAttempts) }, setPositiveInt(func(c *config.Config) *int { return &c.RPC.RetryAttempts })},
		{"rpc.timeout", func(c *config.Config) string { return c.RPC.Timeout.String() }, setDuration(func(c *config.Config) *time.Duration { return &c.RPC.Timeout })},
		{"refresh.interval", func(c *config.Config) string { return c.Refresh.Interval.String() }, setDuration(func(c *config.Config) *time.Duration { return &c.Refresh.Interval })},
		{"metrics.addr", func(c *config.Config) string { return c.Metrics.Addr }, setString(func(c *config.Config) *string { return &c.Metrics.Addr })},
		{"output.default_format", func(c *config.Config) string { return c.Output.DefaultFormat }, setOneOf(func(c *config.Config) *string { return &c.Output.DefaultFormat }, "text", "json", "auto")},
		{"output.verbose", func(c *config.Config) string { return strconv.FormatBool(c.Output.Verbose) }, setBool(func(c *config.Config) *bool { return &c.Output.Verbose })},
		{"logging.level", func(c *config.Config) string { return c.Logging.Level }, setOneOf(func(c *config.Config) *string { return &c.Logging.Level }, "off", "error", "debug")},
		{"logging.file", func(c *config.Config) string { return c.Logging.File }, setString(func(c *config.Config) *string { return &c.Logging.File })},
		{"logging.max_size_kb", func(c *config.Config) string { return strconv.FormatInt(c.Logging.MaxSizeKB, 10) }, setLogSize},
		{"logging.max_rolls", func(c *config.Config) string { return strconv.Itoa(c.Logging.MaxRolls) }, setPositiveInt(func(c *config.Config) *int { return &c.Logging.MaxRolls })},
	}
}

// lookupConfigKey resolves a dot path to its setting.
func lookupConfigKey(c *config.Config, path string) (configKey, error) {
	path = strings.ToLower(strings.TrimSpace(path))
	for _, k := range configKeys() {
		if k.path == path {
			return k, nil
		}
	}
	if parts := strings.Split(path, "."); len(parts) == 3 && parts[0] == "networks" {
		return networkKey(c, parts[1], parts[2])
	}
	return configKey{}, unknownConfigKey(c, path)
}

// networkKey addresses networks.<name>.rpc and networks.<name>.chain_id.
// Getting a key of a network that does not exist fails; setting one creates it.
func networkKey(c *config.Config, name, field string) (configKey, error) {
	path := "networks." + name + "." + field
	_, exists := c.Networks[name]

	update := func(c *config.Config, fn func(n *config.NetworkConfig)) {
		if c.Networks == nil {
			c.Networks = map[string]config.NetworkConfig{}
		}
		n := c.Networks[name]
		fn(&n)
		c.Networks[name] = n
	}

	switch field {
	case "rpc":
		k := configKey{
			path: path,
			get:  func(c *config.Config) string { return c.Networks[name].RPC },
			set: func(c *config.Config, value string) error {
				value = config.SanitizeURL(value)
				if err := checkURL(value); err != nil {
					return err
				}
				update(c, func(n *config.NetworkConfig) { n.RPC = value })
				return nil
			},
		}
		if !exists {
			k.get = nil
		}
		return k, nil
	case "chain_id":
		k := configKey{
			path: path,
			get:  func(c *config.Config) string { return strconv.FormatInt(c.Networks[name].ChainID, 10) },
			set: func(c *config.Config, value string) error {
				id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
				if err != nil || id <= 0 {
					return invalidConfigValue(value, "a positive integer")
				}
				update(c, func(n *config.NetworkConfig) { n.ChainID = id })
				return nil
			},
		}
		if !exists {
			k.get = nil
		}
		return k, nil
	}
	return configKey{}, unknownConfigKey(c, path)
}

// unknownConfigKey builds the error for an unknown path, suggesting the
// closest known one.
func unknownConfigKey(c *config.Config, path string) error {
	err := tlerr.WithDetails(tlerr.ErrUnknownConfigKey, map[string]string{"key": path})

	candidates := make([]string, 0, len(configKeys())+2*len(c.Networks))
	for _, k := range configKeys() {
		candidates = append(candidates, k.path)
	}
	for _, name := range c.NetworkNames() {
		candidates = append(candidates, "networks."+name+".rpc", "networks."+name+".chain_id")
	}

	best, bestDist := "", maxConfigKeyTypoDistance+1
	for _, cand := range candidates {
		if d := levenshtein.ComputeDistance(path, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	if best != "" {
		return tlerr.WithSuggestion(err, fmt.Sprintf("did you mean %q?", best))
	}
	return tlerr.WithSuggestion(err, "run 'timelock config show' to list the settings")
}

func invalidConfigValue(value, valid string) error {
	return tlerr.WithDetails(tlerr.ErrInvalidInput, map[string]string{
		"value": value,
		"valid": valid,
	})
}

// apply sets the key on c, naming the key in validation errors.
func (k configKey) apply(c *config.Config, value string) error {
	err := k.set(c, value)
	var te *tlerr.TimelockError
	if errors.As(err, &te) && te.Code == tlerr.ErrInvalidInput.Code {
		details := map[string]string{"key": k.path}
		for name, v := range te.Details {
			details[name] = v
		}
		return tlerr.WithDetails(err, details)
	}
	return err
}

func checkURL(value string) error {
	if value == "" || strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") ||
		strings.HasPrefix(value, "ws://") || strings.HasPrefix(value, "wss://") {
		return nil
	}
	return invalidConfigValue(value, "an http(s) or ws(s) URL")
}

func setString(field func(c *config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		*field(c) = strings.TrimSpace(value)
		return nil
	}
}

func setURL(field func(c *config.Config) *string) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		value = config.SanitizeURL(value)
		if err := checkURL(value); err != nil {
			return err
		}
		*field(c) = value
		return nil
	}
}

func setBool(field func(c *config.Config) *bool) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return invalidConfigValue(value, "true or false")
		}
		*field(c) = b
		return nil
	}
}

func setPositiveInt(field func(c *config.Config) *int) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 1 {
			return invalidConfigValue(value, "a positive integer")
		}
		*field(c) = n
		return nil
	}
}

func setDuration(field func(c *config.Config) *time.Duration) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		d, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil || d <= 0 {
			return invalidConfigValue(value, "a positive duration such as 5s")
		}
		*field(c) = d
		return nil
	}
}

func setOneOf(field func(c *config.Config) *string, valid ...string) func(*config.Config, string) error {
	return func(c *config.Config, value string) error {
		value = strings.ToLower(strings.TrimSpace(value))
		for _, v := range valid {
			if value == v {
				*field(c) = value
				return nil
			}
		}
		return invalidConfigValue(value, strings.Join(valid, ", "))
	}
}

func setNetwork(c *config.Config, value string) error {
	name := strings.ToLower(strings.TrimSpace(value))
	if _, ok := c.Networks[name]; !ok {
		_, err := c.ResolveNetworkByName(name)
		return err
	}
	c.Network = name
	return nil
}

func setProvider(c *config.Config, value string) error {
	return setOneOf(func(c *config.Config) *string { return &c.Wallet.Provider }, config.ProviderNode, config.ProviderKeyed)(c, value)
}

func setGasLimit(c *config.Config, value string) error {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || n == 0 {
		return invalidConfigValue(value, "a positive integer")
	}
	c.Transaction.GasLimit = n
	return nil
}

func setNonceOffset(c *config.Config, value string) error {
	n, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return invalidConfigValue(value, "a non-negative integer")
	}
	c.Transaction.DeployNonceOffset = n
	return nil
}

func setLogSize(c *config.Config, value string) error {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 1 {
		return invalidConfigValue(value, "a positive size in KB")
	}
	c.Logging.MaxSizeKB = n
	return nil
}

func setGasPrice(c *config.Config, value string) error {
	value = strings.TrimSpace(value)
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return invalidConfigValue(value, "a non-negative integer in wei")
	}
	c.Transaction.GasPrice = v.String()
	return nil
}

func setRateLimit(c *config.Config, value string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 {
		return invalidConfigValue(value, "a non-negative number; 0 disables limiting")
	}
	c.RPC.RateLimit = f
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	home, err := config.ExpandPath(cc.Config.Home)
	if err != nil {
		return err
	}
	configPath := config.Path(home)

	if _, err := os.Stat(configPath); err == nil && !configForce {
		return tlerr.WithSuggestion(
			tlerr.WithDetails(tlerr.ErrGeneral, map[string]string{"path": configPath}),
			"configuration already exists. Use --force to overwrite.",
		)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultCfg := config.Defaults()
	defaultCfg.Home = cc.Config.Home
	if err := config.Save(defaultCfg, configPath); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(map[string]string{"path": configPath})
	}
	w := f.Writer()
	out(w, "Configuration initialized at %s\n", configPath)
	outln(w)
	outln(w, "Edit this file to configure:")
	outln(w, "  - network: the network used when --network is not given")
	outln(w, "  - wallet.provider: node (unlocked node accounts) or keyed (local mnemonic)")
	outln(w, "  - contract.artifact: path of the compiled Lock.json artifact")
	outln(w, "  - transaction.gas_limit / gas_price: fixed transaction parameters")
	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	c := cc.Config
	f := cc.formatterFor(cmd)

	if f.IsJSON() {
		values := make(map[string]string)
		for _, k := range configKeys() {
			values[k.path] = k.get(c)
		}
		for _, name := range c.NetworkNames() {
			n := c.Networks[name]
			values["networks."+name+".rpc"] = displayRPC(n)
			values["networks."+name+".chain_id"] = strconv.FormatInt(n.ChainID, 10)
		}
		return f.Print(values)
	}

	table := output.NewTable("KEY", "VALUE")
	for _, k := range configKeys() {
		table.AddRow(k.path, displayValue(k.get(c)))
	}
	for _, name := range c.NetworkNames() {
		n := c.Networks[name]
		table.AddRow("networks."+name+".rpc", displayRPC(n))
		table.AddRow("networks."+name+".chain_id", strconv.FormatInt(n.ChainID, 10))
	}
	return table.Render(f.Writer())
}

func displayValue(v string) string {
	if v == "" {
		return "(not configured)"
	}
	return v
}

// displayRPC names the endpoint of a network without expanding the Alchemy
// template, which would reveal the token.
func displayRPC(n config.NetworkConfig) string {
	if n.RPC == "" && n.Alchemy {
		return "(alchemy)"
	}
	return displayValue(n.RPC)
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	key, err := lookupConfigKey(cc.Config, args[0])
	if err != nil {
		return err
	}
	if key.get == nil {
		return tlerr.WithDetails(tlerr.ErrNotFound, map[string]string{"key": key.path})
	}

	value := key.get(cc.Config)
	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(map[string]string{key.path: value})
	}
	outln(f.Writer(), value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	home, err := config.ExpandPath(cc.Config.Home)
	if err != nil {
		return err
	}
	configPath := config.Path(home)

	// Edit the file, not the effective config, so overrides are not persisted.
	current, err := config.Load(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		current = config.Defaults()
		current.Home = cc.Config.Home
	}

	key, err := lookupConfigKey(current, args[0])
	if err != nil {
		return err
	}
	if err := key.apply(current, args[1]); err != nil {
		return err
	}
	// A new network only becomes readable once set.
	if key, err = lookupConfigKey(current, key.path); err != nil {
		return err
	}
	if err := current.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(home, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := config.Save(current, configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	f := cc.formatterFor(cmd)
	if f.IsJSON() {
		return f.Print(map[string]string{key.path: key.get(current)})
	}
	out(f.Writer(), "Set %s = %s\n", key.path, key.get(current))
	return nil
}
