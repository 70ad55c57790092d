// Package config loads caller settings from defaults, a YAML file, AMM_*
// environment variables and command-line flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	uniswapv3 "github.com/defistate/defistate-amm/protocols/uniswapv3"
	"github.com/defistate/defistate-amm/slippage"
)

const (
	DefaultDeadlineMinutes = 30
	DefaultFeeTier         = uniswapv3.FeeTier3000
	DefaultLogLevel        = "info"
	DefaultListenAddr      = ":8080"
)

// Settings are the knobs a caller of the quoting and sizing engines can turn.
type Settings struct {
	SlippageToleranceBps slippage.Tolerance `yaml:"slippageToleranceBps"`
	DeadlineMinutes      int64              `yaml:"deadlineMinutes"`
	FeeTier              uniswapv3.FeeTier  `yaml:"feeTier"`
	UseFullPrecision     bool               `yaml:"useFullPrecision"`

	RPCURL     string `yaml:"rpcUrl,omitempty"`
	ListenAddr string `yaml:"listenAddr"`
	LogLevel   string `yaml:"logLevel"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		SlippageToleranceBps: slippage.Default,
		DeadlineMinutes:      DefaultDeadlineMinutes,
		FeeTier:              DefaultFeeTier,
		UseFullPrecision:     true,
		ListenAddr:           DefaultListenAddr,
		LogLevel:             DefaultLogLevel,
	}
}

// RegisterFlags adds the settings' flags to fs. Flag names double as viper
// keys and, upper-cased with an AMM_ prefix, as environment variables.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int64("slippage-bps", int64(d.SlippageToleranceBps), "slippage tolerance in basis points (0, 5000]")
	fs.Int64("deadline-minutes", d.DeadlineMinutes, "transaction deadline in minutes")
	fs.Uint32("fee-tier", uint32(d.FeeTier), "default fee tier (100, 500, 3000, 10000)")
	fs.Bool("full-precision", d.UseFullPrecision, "size token0 liquidity with a full-precision intermediate")
	fs.String("rpc", "", "Ethereum JSON-RPC URL")
	fs.String("listen", d.ListenAddr, "HTTP listen address")
	fs.String("log-level", d.LogLevel, "log level (debug, info, warn, error)")
}

// Load merges config file, environment variables, and flags into Settings.
// An out-of-range slippage tolerance is replaced by the default rather than
// rejected; an invalid fee tier or deadline is an error.
func Load(cfgFile string, flags *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("slippage-bps", int64(d.SlippageToleranceBps))
	v.SetDefault("deadline-minutes", d.DeadlineMinutes)
	v.SetDefault("fee-tier", uint32(d.FeeTier))
	v.SetDefault("full-precision", d.UseFullPrecision)
	v.SetDefault("rpc", "")
	v.SetDefault("listen", d.ListenAddr)
	v.SetDefault("log-level", d.LogLevel)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Settings{}, errors.Wrap(err, "bind flags")
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, errors.Wrap(err, "read config")
		}
	}

	s := Settings{
		SlippageToleranceBps: slippage.FromBps(v.GetInt64("slippage-bps"), slippage.Default),
		DeadlineMinutes:      v.GetInt64("deadline-minutes"),
		FeeTier:              uniswapv3.FeeTier(v.GetUint32("fee-tier")),
		UseFullPrecision:     v.GetBool("full-precision"),
		RPCURL:               v.GetString("rpc"),
		ListenAddr:           v.GetString("listen"),
		LogLevel:             v.GetString("log-level"),
	}
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s Settings) validate() error {
	if _, err := slippage.New(int64(s.SlippageToleranceBps)); err != nil {
		return err
	}
	if s.DeadlineMinutes <= 0 {
		return fmt.Errorf("deadline must be positive, got %d minutes", s.DeadlineMinutes)
	}
	if _, err := s.FeeTier.TickSpacing(); err != nil {
		return err
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", s.LogLevel)
	}
	return nil
}

// Deadline returns the unix timestamp a transaction built now should expire at.
func (s Settings) Deadline(now time.Time) int64 {
	return now.Add(time.Duration(s.DeadlineMinutes) * time.Minute).Unix()
}

// YAML renders the settings as a YAML document.
func (s Settings) YAML() ([]byte, error) {
	out, err := yaml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "marshal settings")
	}
	return out, nil
}
