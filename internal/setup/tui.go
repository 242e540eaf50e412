package setup

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/perpbasket/config"
	"github.com/vadiminshakov/perpbasket/internal/domain"
	"github.com/vadiminshakov/perpbasket/internal/services/allocator"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// ErrCancelled is returned when the user declines to save.
var ErrCancelled = errors.New("setup cancelled by user")

// Answers collected by the wizard.
type Answers struct {
	Resolution string
	Longs      string
	Shorts     string
	// Weights by symbol as typed, empty for an even split.
	Weights map[string]string
}

// RunTUI launches the terminal wizard and writes the basket config to path.
func RunTUI(path string) error {
	var (
		answers       = Answers{Resolution: config.DefaultResolution.String()}
		customWeights bool
		confirm       bool
	)

	// step 1: resolution
	screen("STEP 1: RESOLUTION")
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's build a long/short basket.\n"))

	options := make([]huh.Option[string], 0, len(domain.Resolutions()))
	for _, r := range domain.Resolutions() {
		options = append(options, huh.NewOption(r.String(), r.String()))
	}
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Candle resolution").
				Options(options...).
				Value(&answers.Resolution),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 2: instruments
	screen("STEP 2: INSTRUMENTS")
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Long symbols").
				Description("Comma separated, quote asset optional (e.g. BTC, ETHUSDT)").
				Value(&answers.Longs).
				Validate(validateSymbols),
			huh.NewInput().
				Title("Short symbols").
				Description("Comma separated, may be empty").
				Value(&answers.Shorts).
				Validate(validateSymbols),
			huh.NewConfirm().
				Title("Set custom weights?").
				Description("Default is an even, dollar-neutral split").
				Value(&customWeights),
		),
	).Run()
	if err != nil {
		return err
	}

	// step 3: weights
	if customWeights {
		screen("STEP 3: WEIGHTS")
		b, err := BuildBasket(Answers{Resolution: answers.Resolution, Longs: answers.Longs, Shorts: answers.Shorts})
		if err != nil {
			return err
		}

		answers.Weights = make(map[string]string, len(b))
		values := make([]string, len(b))
		fields := make([]huh.Field, 0, len(b))
		for i, s := range b {
			values[i] = decimal.NewFromFloat(s.Weight).StringFixed(2)
			fields = append(fields, huh.NewInput().
				Title(fmt.Sprintf("%s (%s) weight %%", s.Symbol, s.Position)).
				Value(&values[i]).
				Validate(validateWeight))
		}
		if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
			return err
		}
		for i, s := range b {
			answers.Weights[s.Symbol] = values[i]
		}
	}

	tmp, err := BuildConfig(answers)
	if err != nil {
		return err
	}

	// confirmation
	screen("FINAL CONFIRMATION")
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary(tmp)))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save basket?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return ErrCancelled
	}

	if err := WriteConfig(path, tmp); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Basket saved to %s\nRun it with: perpbasket run --config %s", path, path)))
	time.Sleep(500 * time.Millisecond)
	return nil
}

func screen(step string) {
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("PERPBASKET SETUP"))
	fmt.Println(stepStyle.Render(step))
}

// BuildBasket turns the answers into a basket with even weights.
func BuildBasket(a Answers) (domain.Basket, error) {
	var (
		b   domain.Basket
		err error
	)
	for _, side := range []struct {
		list string
		pos  domain.Position
	}{{a.Longs, domain.PositionLong}, {a.Shorts, domain.PositionShort}} {
		for _, sym := range splitSymbols(side.list) {
			if b.Contains(sym) {
				return nil, errors.Errorf("%s is listed twice", domain.NormalizeSymbol(sym))
			}
			if b, err = allocator.Add(b, sym, side.pos); err != nil {
				return nil, err
			}
		}
	}
	if len(b) == 0 {
		return nil, errors.New("basket is empty")
	}
	return b, nil
}

// BuildConfig converts the answers into the config file shape.
func BuildConfig(a Answers) (config.ConfigTmp, error) {
	r, err := domain.ParseResolution(a.Resolution)
	if err != nil {
		return config.ConfigTmp{}, err
	}
	b, err := BuildBasket(a)
	if err != nil {
		return config.ConfigTmp{}, err
	}

	if len(a.Weights) > 0 {
		for i, s := range b {
			raw, ok := a.Weights[s.Symbol]
			if !ok {
				return config.ConfigTmp{}, errors.Errorf("no weight for %s", s.Symbol)
			}
			w, err := decimal.NewFromString(strings.TrimSpace(raw))
			if err != nil {
				return config.ConfigTmp{}, errors.Wrapf(err, "weight of %s", s.Symbol)
			}
			b[i].Weight = w.InexactFloat64()
		}
		if !allocator.Validate(b) {
			return config.ConfigTmp{}, errors.Errorf("weights sum to %.2f, want 100", allocator.Sum(b))
		}
	}

	tmp := config.Config{
		Resolution:     r,
		Limit:          config.DefaultLimit,
		RequestTimeout: config.DefaultRequestTimeout,
		MaxRetries:     config.DefaultMaxRetries,
		ListenAddr:     config.DefaultListenAddr,
		BinanceURL:     config.DefaultBinanceURL,
		Basket:         b,
	}.ToTmp()
	return tmp, nil
}

// WriteConfig stores tmp as YAML at path.
func WriteConfig(path string, tmp config.ConfigTmp) error {
	data, err := yaml.Marshal(tmp)
	if err != nil {
		return errors.Wrap(err, "failed to generate yaml")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to save config file")
	}
	return nil
}

func summary(tmp config.ConfigTmp) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Resolution: %s\n", tmp.Resolution)
	for _, s := range tmp.Basket {
		fmt.Fprintf(&sb, "%-12s %-5s %6.2f%%\n", s.Symbol, s.Position, *s.Weight)
	}
	return sb.String()
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validateSymbols(s string) error {
	for _, sym := range splitSymbols(s) {
		for _, r := range sym {
			if !(r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
				return fmt.Errorf("invalid symbol %q", sym)
			}
		}
	}
	return nil
}

func validateWeight(s string) error {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}
