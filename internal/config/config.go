// Package config defines the server's CLI surface and resolves it into a
// validated Config via github.com/spf13/pflag.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Config is the fully-resolved CLI surface for one server process.
type Config struct {
	IP     string
	Port   int
	Local  bool
	Socket string
	Parser string

	DiagAddr     string
	SpectateAddr string
	AuditDSN     string
	PaceMS       int
	MsgCatDir    string

	Verbose bool
	Help    bool
}

// Parse builds a Config from argv (excluding the program name). On
// --help it prints usage and returns a Config with Help set and a nil
// error, skipping validation; the caller must exit 0.
func Parse(argv []string) (*Config, error) {
	fs := pflag.NewFlagSet("chess-server", pflag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage of chess-server:")
		fs.PrintDefaults()
	}

	cfg := &Config{}
	fs.StringVarP(&cfg.IP, "ip", "i", "127.0.0.1", "bind address (tcp mode)")
	fs.IntVarP(&cfg.Port, "port", "p", 2000, "bind port (tcp mode)")
	fs.BoolVar(&cfg.Local, "local", false, "switch to unix-socket mode")
	fs.StringVar(&cfg.Socket, "socket", "/tmp/chess_server.sock", "unix socket path")
	fs.StringVar(&cfg.Parser, "parser", "simple", `notation parser: "simple" or "pgn"`)

	fs.StringVar(&cfg.DiagAddr, "diag-addr", "", "diagnostics HTTP listen address (disabled if empty)")
	fs.StringVar(&cfg.SpectateAddr, "spectate-addr", "", "spectator websocket listen address (disabled if empty)")
	fs.StringVar(&cfg.AuditDSN, "audit-dsn", "", "postgres DSN for the audit sink (disabled if empty)")
	fs.IntVar(&cfg.PaceMS, "pace-ms", 50, "pacing delay in milliseconds between replayed moves")
	fs.StringVar(&cfg.MsgCatDir, "msgcat-dir", "", "directory of .yaml files overriding the embedded message catalog")

	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "raise log verbosity")
	help := fs.BoolP("help", "h", false, "print usage and exit 0")

	if err := fs.Parse(argv); err != nil {
		return nil, err
	}
	if *help {
		fs.Usage()
		cfg.Help = true
		return cfg, nil
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Parser != "simple" && c.Parser != "pgn" {
		return fmt.Errorf(`--parser must be "simple" or "pgn", got %q`, c.Parser)
	}
	if c.Local && c.Socket == "" {
		return fmt.Errorf("--local requires a non-empty --socket path")
	}
	if !c.Local && c.Port <= 0 {
		return fmt.Errorf("--port must be positive")
	}
	if c.PaceMS < 0 {
		return fmt.Errorf("--pace-ms must not be negative")
	}
	return nil
}
