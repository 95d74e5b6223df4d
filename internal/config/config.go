// Package config loads the server's layered configuration: defaults,
// then an optional YAML file, then environment overrides, then CLI
// flags — each layer wins over the one before it.
package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is every knob the core server needs at startup.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Debug bool `yaml:"debug"`

	TLS     bool   `yaml:"tls"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`

	KVHost string `yaml:"kv_host"`
	KVPort int    `yaml:"kv_port"`
	KVDB   int    `yaml:"kv_db"`

	TickPeriod       time.Duration `yaml:"tick_period"`
	MapCatalogDir    string        `yaml:"map_catalog_dir"`
	ItemCatalogPath  string        `yaml:"item_catalog_path"`
	NPCCatalogPath   string        `yaml:"npc_catalog_path"`
	SpellCatalogPath string        `yaml:"spell_catalog_path"`
	LootCatalogPath  string        `yaml:"loot_catalog_path"`

	ReadTimeout           time.Duration `yaml:"read_timeout"`
	LoginHandshakeTimeout time.Duration `yaml:"login_handshake_timeout"`
	OutboundBufferSize    int           `yaml:"outbound_buffer_size"`

	// ShutdownGrace is how long an in-flight connection gets to drain
	// on its own after the listener stops accepting, before the server
	// force-closes it.
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`

	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`

	// UseErrorMsgOpcode selects ERROR_MSG instead of CONSOLE_MSG for
	// server-originated notices. Both opcodes exist on the wire; which
	// one a deployment uses depends on what its client handles.
	UseErrorMsgOpcode bool `yaml:"use_error_msg_opcode"`
	// SendClanDetailsOnLogin gates an optional CLAN_DETAILS push at
	// login, off by default.
	SendClanDetailsOnLogin bool `yaml:"send_clan_details_on_login"`

	// Tick effect tunables. A subset of config:effects:* is exposed here
	// rather than read live from persistence on every tick, to keep the
	// tick task from touching the store while holding the world lock.
	HungerThirstInterval  time.Duration `yaml:"hunger_thirst_interval"`
	HungerThirstDecrement int32         `yaml:"hunger_thirst_decrement"`
	StarvationDamage      int32         `yaml:"starvation_damage"`

	GoldDecayInterval time.Duration `yaml:"gold_decay_interval"`
	GoldDecayFraction float64       `yaml:"gold_decay_fraction"`

	MeditationInterval time.Duration `yaml:"meditation_interval"`
	MeditationManaPct  float64       `yaml:"meditation_mana_pct"`

	RegenInterval       time.Duration `yaml:"regen_interval"`
	StaminaRegenAmount  int32         `yaml:"stamina_regen_amount"`
	RestingStaminaBonus int32         `yaml:"resting_stamina_bonus"`

	AttributeModInterval time.Duration `yaml:"attribute_mod_interval"`

	RespawnCheckInterval time.Duration `yaml:"respawn_check_interval"`
	NPCAIInterval        time.Duration `yaml:"npc_ai_interval"`
}

// Default returns the built-in defaults: the standard bind host/port
// and conservative timeouts/limits elsewhere.
func Default() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 7666,

		KVHost: "127.0.0.1",
		KVPort: 6379,
		KVDB:   0,

		TickPeriod:       500 * time.Millisecond,
		MapCatalogDir:    "data/maps",
		ItemCatalogPath:  "data/items.toml",
		NPCCatalogPath:   "data/npcs.toml",
		SpellCatalogPath: "data/spells.toml",
		LootCatalogPath:  "data/loot.toml",

		ReadTimeout:           5 * time.Minute,
		LoginHandshakeTimeout: 30 * time.Second,
		OutboundBufferSize:    256,
		ShutdownGrace:         5 * time.Second,

		Workers:    0, // 0 means runtime.GOMAXPROCS(0)*2 at wiring time
		QueueDepth: 1024,

		UseErrorMsgOpcode:      false,
		SendClanDetailsOnLogin: false,

		HungerThirstInterval:  180 * time.Second,
		HungerThirstDecrement: 1,
		StarvationDamage:      5,

		GoldDecayInterval: 60 * time.Second,
		GoldDecayFraction: 0.01,

		MeditationInterval: 3 * time.Second,
		MeditationManaPct:  0.05,

		RegenInterval:       4 * time.Second,
		StaminaRegenAmount:  3,
		RestingStaminaBonus: 5,

		AttributeModInterval: 10 * time.Second,

		RespawnCheckInterval: 1 * time.Second,
		NPCAIInterval:        2 * time.Second,
	}
}

// Load builds the final Config: defaults, then filePath (if non-empty
// and present), then environment overrides. CLI flags are applied
// separately by ParseFlags, which is expected to run after Load.
func Load(filePath string) (Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		switch {
		case os.IsNotExist(err):
			// absent file is not an error; defaults stand
		case err != nil:
			return cfg, fmt.Errorf("reading config %s: %w", filePath, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parsing config %s: %w", filePath, err)
			}
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if p, err := parsePort(v); err == nil {
			cfg.Port = p
		}
	}
	if v := os.Getenv("KV_HOST"); v != "" {
		cfg.KVHost = v
	}
	if v := os.Getenv("KV_PORT"); v != "" {
		if p, err := parsePort(v); err == nil {
			cfg.KVPort = p
		}
	}
	if v := os.Getenv("KV_DB"); v != "" {
		if d, err := parsePort(v); err == nil {
			cfg.KVDB = d
		}
	}
}

func parsePort(s string) (int, error) {
	var p int
	_, err := fmt.Sscanf(s, "%d", &p)
	return p, err
}

// ParseFlags registers and parses the CLI surface onto a copy of cfg,
// with CLI flags winning over whatever Load produced. args excludes
// the program name (pass os.Args[1:]).
func ParseFlags(cfg Config, args []string) (Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	host := fs.String("host", cfg.Host, "bind host")
	port := fs.Int("port", cfg.Port, "bind port")
	debug := fs.Bool("debug", cfg.Debug, "enable debug logging")
	tls := fs.Bool("tls", cfg.TLS, "require TLS on accept")
	tlsCert := fs.String("tls-cert", cfg.TLSCert, "TLS certificate file")
	tlsKey := fs.String("tls-key", cfg.TLSKey, "TLS private key file")

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	cfg.Host = *host
	cfg.Port = *port
	cfg.Debug = *debug
	cfg.TLS = *tls
	cfg.TLSCert = *tlsCert
	cfg.TLSKey = *tlsKey

	if cfg.TLS && (cfg.TLSCert == "" || cfg.TLSKey == "") {
		return cfg, fmt.Errorf("--tls requires both --tls-cert and --tls-key")
	}
	return cfg, nil
}
