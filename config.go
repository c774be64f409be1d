package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Seednode/tabletop/games/blackjack"
	"github.com/Seednode/tabletop/games/yahtzee"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind        string
	configFile  string
	dailyDB     string
	gracePeriod time.Duration
	port        int
	prefix      string
	profile     bool
	roomTimeout time.Duration
	tlsCert     string
	tlsKey      string
	verbose     bool
	version     bool

	autoRestart    bool
	bettingTimeout time.Duration
	dealerDelay    time.Duration
	decks          int
	diceSeats      int
	hitSoft17      bool
	maxBet         int
	minBet         int
	reshuffleAt    int
	startingChips  int
	tableSeats     int
	turnTimeout    time.Duration
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.roomTimeout < 0 {
		return fmt.Errorf("invalid room timeout (must not be negative): %s", c.roomTimeout)
	}
	if c.diceSeats < 1 {
		return fmt.Errorf("invalid dice table size (must be at least 1): %d", c.diceSeats)
	}
	if err := c.blackjackRules().Validate(); err != nil {
		return fmt.Errorf("invalid blackjack rules: %w", err)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) blackjackRules() blackjack.Rules {
	return blackjack.Rules{
		MinBet:         c.minBet,
		MaxBet:         c.maxBet,
		Decks:          c.decks,
		HitSoft17:      c.hitSoft17,
		ReshuffleAt:    c.reshuffleAt,
		StartingChips:  c.startingChips,
		Seats:          c.tableSeats,
		BettingTimeout: c.bettingTimeout,
		TurnTimeout:    c.turnTimeout,
		DealerDelay:    c.dealerDelay,
		GracePeriod:    c.gracePeriod,
		AutoRestart:    c.autoRestart,
	}
}

func (c *Config) yahtzeeRules() yahtzee.Rules {
	return yahtzee.Rules{
		Seats:       c.diceSeats,
		TurnTimeout: c.turnTimeout,
		GracePeriod: c.gracePeriod,
	}
}

// applySettings copies values viper knows about onto flags the user did
// not set on the command line.
func applySettings(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TABLETOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "tabletop",
		Short:         "Multiplayer blackjack and dice tables, played in the browser.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if cfg.configFile == "" {
				return nil
			}
			v.SetConfigFile(cfg.configFile)
			if err := v.ReadInConfig(); err != nil {
				return fmt.Errorf("read config file: %w", err)
			}
			applySettings(v, cmd.Flags())
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: TABLETOP_BIND)")
	fs.StringVarP(&cfg.configFile, "config", "c", "", "path to a config file with flag values (env: TABLETOP_CONFIG)")
	fs.StringVar(&cfg.dailyDB, "daily-db", "", "path to the daily question database, empty to disable (env: TABLETOP_DAILY_DB)")
	fs.DurationVar(&cfg.gracePeriod, "grace-period", 30*time.Second, "time a disconnected player keeps their seat (env: TABLETOP_GRACE_PERIOD)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: TABLETOP_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: TABLETOP_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: TABLETOP_PROFILE)")
	fs.DurationVar(&cfg.roomTimeout, "room-timeout", 60*time.Minute, "time before empty rooms are reclaimed (env: TABLETOP_ROOM_TIMEOUT)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: TABLETOP_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: TABLETOP_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: TABLETOP_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: TABLETOP_VERSION)")

	fs.BoolVar(&cfg.autoRestart, "auto-restart", false, "reopen betting after each blackjack round (env: TABLETOP_AUTO_RESTART)")
	fs.DurationVar(&cfg.bettingTimeout, "betting-timeout", 30*time.Second, "time players have to place bets (env: TABLETOP_BETTING_TIMEOUT)")
	fs.DurationVar(&cfg.dealerDelay, "dealer-delay", 900*time.Millisecond, "pause between dealer moves (env: TABLETOP_DEALER_DELAY)")
	fs.IntVar(&cfg.decks, "decks", 6, "decks in the blackjack shoe (env: TABLETOP_DECKS)")
	fs.IntVar(&cfg.diceSeats, "dice-seats", 8, "seats at each dice table (env: TABLETOP_DICE_SEATS)")
	fs.BoolVar(&cfg.hitSoft17, "hit-soft-17", true, "dealer hits soft 17 (env: TABLETOP_HIT_SOFT_17)")
	fs.IntVar(&cfg.maxBet, "max-bet", 500, "largest blackjack bet (env: TABLETOP_MAX_BET)")
	fs.IntVar(&cfg.minBet, "min-bet", 5, "smallest blackjack bet (env: TABLETOP_MIN_BET)")
	fs.IntVar(&cfg.reshuffleAt, "reshuffle-at", 52, "reshuffle when fewer cards remain at round start (env: TABLETOP_RESHUFFLE_AT)")
	fs.IntVar(&cfg.startingChips, "starting-chips", 1000, "chips each blackjack seat starts with (env: TABLETOP_STARTING_CHIPS)")
	fs.IntVar(&cfg.tableSeats, "table-seats", 6, "seats at each blackjack table (env: TABLETOP_TABLE_SEATS)")
	fs.DurationVar(&cfg.turnTimeout, "turn-timeout", 30*time.Second, "time a player has to act on their turn (env: TABLETOP_TURN_TIMEOUT)")

	applySettings(v, fs)

	cmd.AddCommand(newSimulateCmd())

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("tabletop v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
