// Package config assembles the runtime configuration from defaults, an
// optional YAML file, the environment (including a .env file) and CLI flags,
// in increasing order of priority.
package config

import (
	"flag"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/allocator"
)

// Command is the subcommand to execute.
type Command string

const (
	CommandServe Command = "serve"
	CommandRun   Command = "run"
	CommandSetup Command = "setup"
)

const (
	DefaultListenAddr     = ":8080"
	DefaultResolution     = domain.Resolution1h
	DefaultLimit          = 500
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 2
	DefaultBinanceURL     = "https://fapi.binance.com"
	DefaultSetupOutput    = "basket.gen.yaml"
	DefaultEnvFile        = ".env"

	// MaxLimit is the largest kline page Binance futures serves.
	MaxLimit = 1500
)

const (
	EnvListenAddr     = "PERPBASKET_LISTEN_ADDR"
	EnvResolution     = "PERPBASKET_RESOLUTION"
	EnvRequestTimeout = "PERPBASKET_REQUEST_TIMEOUT"
	EnvLimit          = "PERPBASKET_LIMIT"
	EnvMaxRetries     = "PERPBASKET_MAX_RETRIES"
	EnvBinanceURL     = "PERPBASKET_BINANCE_URL"
	EnvStart          = "PERPBASKET_START"
	EnvEnd            = "PERPBASKET_END"
)

// ErrUsage is returned when the command line cannot be understood.
var ErrUsage = errors.New("usage: perpbasket serve|run|setup [flags]")

// Config is the validated runtime configuration.
type Config struct {
	Command        Command
	ListenAddr     string
	Resolution     domain.Resolution
	Limit          int
	Range          domain.CandleRange
	RequestTimeout time.Duration
	MaxRetries     int
	BinanceURL     string
	Basket         domain.Basket
	ChartPath      string
	SetupOutput    string
}

// ConfigTmp is the YAML shape of the configuration file.
type ConfigTmp struct {
	ListenAddr     string         `yaml:"listen_addr,omitempty"`
	Resolution     string         `yaml:"resolution,omitempty"`
	Limit          int            `yaml:"limit,omitempty"`
	Start          string         `yaml:"start,omitempty"`
	End            string         `yaml:"end,omitempty"`
	RequestTimeout time.Duration  `yaml:"request_timeout,omitempty"`
	MaxRetries     *int           `yaml:"max_retries,omitempty"`
	BinanceURL     string         `yaml:"binance_url,omitempty"`
	Basket         []SelectionTmp `yaml:"basket"`
}

// SelectionTmp is one basket entry of the configuration file. Weight may
// be omitted on every entry to get an even split.
type SelectionTmp struct {
	Symbol   string   `yaml:"symbol"`
	Position string   `yaml:"position"`
	Weight   *float64 `yaml:"weight,omitempty"`
}

// Get reads the configuration for the process arguments.
func Get() (Config, error) {
	return Parse(os.Args[1:], os.Stderr)
}

// Parse reads the configuration for args, which start with the subcommand.
// Flag errors and usage are written to output.
func Parse(args []string, output io.Writer) (Config, error) {
	if len(args) == 0 {
		return Config{}, ErrUsage
	}

	cfg := Config{
		Command:        Command(args[0]),
		ListenAddr:     DefaultListenAddr,
		Resolution:     DefaultResolution,
		Limit:          DefaultLimit,
		RequestTimeout: DefaultRequestTimeout,
		MaxRetries:     DefaultMaxRetries,
		BinanceURL:     DefaultBinanceURL,
		SetupOutput:    DefaultSetupOutput,
	}
	switch cfg.Command {
	case CommandServe, CommandRun, CommandSetup:
	default:
		return Config{}, errors.Wrapf(ErrUsage, "unknown command %q", args[0])
	}

	fs := flag.NewFlagSet(string(cfg.Command), flag.ContinueOnError)
	fs.SetOutput(output)
	configPath := fs.String("config", "", "path to yaml config")
	envPath := fs.String("env", DefaultEnvFile, "path to .env file, ignored when missing")
	resolution := fs.String("resolution", "", "candle resolution, example: 1h")
	limit := fs.Int("limit", 0, "candles per symbol when no range is given")
	start := fs.String("start", "", "range start: unix ms, RFC3339 or YYYY-MM-DD (UTC)")
	end := fs.String("end", "", "range end: unix ms, RFC3339 or YYYY-MM-DD (UTC)")
	timeout := fs.Duration("timeout", 0, "per request timeout, example: 10s")
	retries := fs.Int("retries", 0, "retries of a failed exchange request")
	binanceURL := fs.String("binance-url", "", "Binance futures REST endpoint")
	symbols := fs.String("basket", "", "basket as SYMBOL:side[:weight] list, example: BTC:long,ETH:short")
	listen := fs.String("listen", "", "HTTP listen address (serve)")
	chartPath := fs.String("chart", "", "write a PNG chart to this path (run)")
	out := fs.String("out", "", "output file (setup)")

	if err := fs.Parse(args[1:]); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(*envPath); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		if err := applyYaml(&cfg, *configPath); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		if flagErr != nil {
			return
		}
		switch f.Name {
		case "resolution":
			cfg.Resolution = domain.Resolution(*resolution)
		case "limit":
			cfg.Limit = *limit
		case "start":
			cfg.Range.Start, flagErr = parseTimeBound("start", *start)
		case "end":
			cfg.Range.End, flagErr = parseTimeBound("end", *end)
		case "timeout":
			cfg.RequestTimeout = *timeout
		case "retries":
			cfg.MaxRetries = *retries
		case "binance-url":
			cfg.BinanceURL = *binanceURL
		case "listen":
			cfg.ListenAddr = *listen
		case "chart":
			cfg.ChartPath = *chartPath
		case "out":
			cfg.SetupOutput = *out
		case "basket":
			b, err := parseBasketFlag(*symbols)
			if err != nil {
				flagErr = err
				return
			}
			cfg.Basket = b
		}
	})
	if flagErr != nil {
		return Config{}, flagErr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for the selected command.
func (c Config) Validate() error {
	if !c.Resolution.IsValid() {
		return errors.Wrapf(domain.ErrInvalidResolution, "incorrect 'resolution' param %q", c.Resolution)
	}
	if c.Limit <= 0 || c.Limit > MaxLimit {
		return errors.Errorf("incorrect 'limit' param %d, must be between 1 and %d", c.Limit, MaxLimit)
	}
	if err := c.Range.Validate(); err != nil {
		return errors.Wrap(err, "incorrect 'start'/'end' params")
	}
	if c.RequestTimeout <= 0 {
		return errors.Errorf("incorrect 'request_timeout' param %s, must be positive", c.RequestTimeout)
	}
	if c.MaxRetries < 0 {
		return errors.Errorf("incorrect 'max_retries' param %d, must not be negative", c.MaxRetries)
	}
	if c.BinanceURL == "" {
		return errors.New("binance url is empty")
	}
	if c.Command == CommandServe && c.ListenAddr == "" {
		return errors.New("listen address is empty")
	}
	if c.Command == CommandRun && len(c.Basket) == 0 {
		return errors.New("basket is empty, pass --basket or a config file with a 'basket' section")
	}
	if len(c.Basket) > 0 && !allocator.Validate(c.Basket) {
		return errors.Errorf("basket weights sum to %.2f, want %.0f", allocator.Sum(c.Basket), allocator.TotalWeight)
	}
	return nil
}

// ToTmp converts the configuration back to its file shape.
func (c Config) ToTmp() ConfigTmp {
	retries := c.MaxRetries
	tmp := ConfigTmp{
		ListenAddr:     c.ListenAddr,
		Resolution:     c.Resolution.String(),
		Limit:          c.Limit,
		RequestTimeout: c.RequestTimeout,
		MaxRetries:     &retries,
		BinanceURL:     c.BinanceURL,
	}
	if c.Range.Start != 0 {
		tmp.Start = strconv.FormatInt(c.Range.Start, 10)
	}
	if c.Range.End != 0 {
		tmp.End = strconv.FormatInt(c.Range.End, 10)
	}
	for _, s := range c.Basket {
		w := s.Weight
		tmp.Basket = append(tmp.Basket, SelectionTmp{Symbol: s.Symbol, Position: s.Position.String(), Weight: &w})
	}
	return tmp
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return errors.Wrapf(err, "failed to load env file %s", path)
	}
	return nil
}

func applyYaml(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	var tmp ConfigTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if tmp.ListenAddr != "" {
		cfg.ListenAddr = tmp.ListenAddr
	}
	if tmp.Resolution != "" {
		cfg.Resolution = domain.Resolution(tmp.Resolution)
	}
	if tmp.Limit != 0 {
		cfg.Limit = tmp.Limit
	}
	if tmp.Start != "" {
		if cfg.Range.Start, err = parseTimeBound("start", tmp.Start); err != nil {
			return errors.Wrap(err, "incorrect yaml config")
		}
	}
	if tmp.End != "" {
		if cfg.Range.End, err = parseTimeBound("end", tmp.End); err != nil {
			return errors.Wrap(err, "incorrect yaml config")
		}
	}
	if tmp.RequestTimeout != 0 {
		cfg.RequestTimeout = tmp.RequestTimeout
	}
	if tmp.MaxRetries != nil {
		cfg.MaxRetries = *tmp.MaxRetries
	}
	if tmp.BinanceURL != "" {
		cfg.BinanceURL = tmp.BinanceURL
	}
	if len(tmp.Basket) > 0 {
		b, err := basketFromTmp(tmp.Basket)
		if err != nil {
			return errors.Wrap(err, "incorrect 'basket' param in yaml config")
		}
		cfg.Basket = b
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(EnvResolution); v != "" {
		cfg.Resolution = domain.Resolution(v)
	}
	if v := os.Getenv(EnvBinanceURL); v != "" {
		cfg.BinanceURL = v
	}
	if v := os.Getenv(EnvRequestTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "incorrect %s", EnvRequestTimeout)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv(EnvLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "incorrect %s", EnvLimit)
		}
		cfg.Limit = n
	}
	if v := os.Getenv(EnvMaxRetries); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "incorrect %s", EnvMaxRetries)
		}
		cfg.MaxRetries = n
	}
	if v := os.Getenv(EnvStart); v != "" {
		ms, err := parseTimeBound(EnvStart, v)
		if err != nil {
			return err
		}
		cfg.Range.Start = ms
	}
	if v := os.Getenv(EnvEnd); v != "" {
		ms, err := parseTimeBound(EnvEnd, v)
		if err != nil {
			return err
		}
		cfg.Range.End = ms
	}
	return nil
}

// parseTimeBound reads a range bound given as unix milliseconds, an RFC3339
// timestamp or a UTC date.
func parseTimeBound(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, errors.Errorf("incorrect '%s' param %q, want unix ms, RFC3339 or YYYY-MM-DD", name, s)
}

// basketFromTmp builds a basket from file entries. Entries either all carry
// a weight or none does; in the latter case weights are split evenly.
func basketFromTmp(entries []SelectionTmp) (domain.Basket, error) {
	b := make(domain.Basket, 0, len(entries))
	weighted := 0
	for _, e := range entries {
		if strings.TrimSpace(e.Symbol) == "" {
			return nil, allocator.ErrEmptySymbol
		}
		pos := domain.Position(strings.ToLower(strings.TrimSpace(e.Position)))
		if !pos.IsValid() {
			return nil, errors.Wrapf(allocator.ErrInvalidPosition, "%s: %q", e.Symbol, e.Position)
		}
		sym := domain.NormalizeSymbol(e.Symbol)
		if b.Contains(sym) {
			return nil, errors.Errorf("duplicate symbol %s", sym)
		}
		s := domain.Selection{Symbol: sym, Position: pos}
		if e.Weight != nil {
			s.Weight = *e.Weight
			weighted++
		}
		b = append(b, s)
	}

	switch weighted {
	case 0:
		return allocator.RebalanceAll(b), nil
	case len(b):
		return b, nil
	default:
		return nil, errors.New("either every basket entry has a weight or none does")
	}
}

func parseBasketFlag(s string) (domain.Basket, error) {
	var entries []SelectionTmp
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.Split(item, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, errors.Errorf("invalid --basket entry %q, want SYMBOL:side[:weight]", item)
		}
		e := SelectionTmp{Symbol: parts[0], Position: parts[1]}
		if len(parts) == 3 {
			w, err := strconv.ParseFloat(parts[2], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid weight in --basket entry %q", item)
			}
			e.Weight = &w
		}
		entries = append(entries, e)
	}
	if len(entries) == 0 {
		return nil, errors.New("--basket is empty")
	}
	return basketFromTmp(entries)
}
