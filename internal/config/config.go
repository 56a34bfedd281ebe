// Package config parses the server's command-line flags and an optional
// JSON overlay file (spec §6's CLI/config collaborator), in the
// teacher's own style: standard-library flag.FlagSet for the typed,
// always-present settings, and github.com/tidwall/gjson for the
// handful of dynamic fields that are easier to duck-type than to
// struct-unmarshal.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
)

// Config is the fully resolved set of server settings.
type Config struct {
	Port         int
	WSPort       int // 0 disables the WebSocket fallback listener
	MaxClients   int
	AudioEnabled bool
	PaletteChars string
	LogFile      string
	Quiet        bool
	ColorOutput  bool
	ConfigPath   string

	AdminGRPCPort int    // 0 disables the admin gRPC control plane
	AdminHTTPPort int    // 0 disables the HTTP stats endpoint
	AdminUser     string
	AdminPassword string
	DBPath        string // sqlite file for the audit log; empty disables it
	DBDSN         string // non-empty selects Postgres via this DSN instead
}

// Defaults mirrors spec §6's stated defaults.
func Defaults() Config {
	return Config{
		Port:         27224,
		WSPort:       0,
		MaxClients:   32,
		AudioEnabled: true,
		PaletteChars: "", // empty means internal/palette.DefaultRamp
		LogFile:      "",
		Quiet:        false,
		ColorOutput:  true,

		AdminGRPCPort: 0,
		AdminHTTPPort: 0,
		AdminUser:     "admin",
	}
}

// Parse parses args (normally os.Args[1:]) into a Config, starting from
// Defaults and applying, in order: an optional --config JSON overlay,
// then the flags explicitly passed on the command line (so CLI flags
// always win over the file).
func Parse(args []string) (Config, error) {
	cfg := Defaults()

	fs := flag.NewFlagSet("ascii-chat-server", flag.ContinueOnError)
	port := fs.Int("port", cfg.Port, "TCP port to listen on")
	wsPort := fs.Int("ws-port", cfg.WSPort, "HTTP port serving the WebSocket fallback transport (0 disables it)")
	maxClients := fs.Int("max-clients", cfg.MaxClients, "maximum simultaneous clients")
	audio := fs.Bool("audio", cfg.AudioEnabled, "audio setting (recorded in Config and logged at startup; audio mixing runs either way)")
	palette := fs.String("palette", cfg.PaletteChars, "custom luminance-ramp characters (recorded in Config; clients render with the default ramp unless they negotiate their own custom palette)")
	logFile := fs.String("log-file", cfg.LogFile, "path to write logs to (empty = stderr)")
	quiet := fs.Bool("quiet", cfg.Quiet, "suppress informational log lines")
	color := fs.Bool("color", cfg.ColorOutput, "ANSI color setting (recorded in Config; each client's color output follows its negotiated terminal capabilities)")
	configPath := fs.String("config", "", "optional JSON config file overlay")
	adminGRPCPort := fs.Int("admin-grpc-port", cfg.AdminGRPCPort, "gRPC admin control-plane port (0 disables it)")
	adminHTTPPort := fs.Int("admin-http-port", cfg.AdminHTTPPort, "HTTP stats endpoint port (0 disables it)")
	adminUser := fs.String("admin-user", cfg.AdminUser, "HTTP admin basic-auth username")
	adminPassword := fs.String("admin-password", cfg.AdminPassword, "HTTP admin basic-auth password")
	dbPath := fs.String("db-path", cfg.DBPath, "sqlite file for the session audit log (empty disables it)")
	dbDSN := fs.String("db-dsn", cfg.DBDSN, "Postgres DSN for the session audit log (overrides -db-path)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if *configPath != "" {
		overlay, err := loadOverlay(*configPath)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		cfg = overlay
	}

	// CLI flags win over the file, but only for flags the user actually
	// set: fs.Visit walks only those, so an unset flag (whose default came
	// from Defaults, not the file) never overwrites a file-derived value.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "ws-port":
			cfg.WSPort = *wsPort
		case "max-clients":
			cfg.MaxClients = *maxClients
		case "audio":
			cfg.AudioEnabled = *audio
		case "palette":
			cfg.PaletteChars = *palette
		case "log-file":
			cfg.LogFile = *logFile
		case "quiet":
			cfg.Quiet = *quiet
		case "color":
			cfg.ColorOutput = *color
		case "admin-grpc-port":
			cfg.AdminGRPCPort = *adminGRPCPort
		case "admin-http-port":
			cfg.AdminHTTPPort = *adminHTTPPort
		case "admin-user":
			cfg.AdminUser = *adminUser
		case "admin-password":
			cfg.AdminPassword = *adminPassword
		case "db-path":
			cfg.DBPath = *dbPath
		case "db-dsn":
			cfg.DBDSN = *dbDSN
		}
	})
	cfg.ConfigPath = *configPath
	return cfg, nil
}

// loadOverlay reads a JSON config file with gjson's partial/duck-typed
// parsing: fields absent from the file simply leave Defaults() in place,
// and unrecognized fields are silently ignored, matching spec §9's
// "duck-typed payload" tolerance for the wire layer.
func loadOverlay(path string) (Config, error) {
	cfg := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	doc := string(raw)
	if !gjson.Valid(doc) {
		return cfg, fmt.Errorf("invalid JSON in %s", path)
	}

	if v := gjson.Get(doc, "port"); v.Exists() {
		cfg.Port = int(v.Int())
	}
	if v := gjson.Get(doc, "ws_port"); v.Exists() {
		cfg.WSPort = int(v.Int())
	}
	if v := gjson.Get(doc, "max_clients"); v.Exists() {
		cfg.MaxClients = int(v.Int())
	}
	if v := gjson.Get(doc, "audio_enabled"); v.Exists() {
		cfg.AudioEnabled = v.Bool()
	}
	if v := gjson.Get(doc, "palette"); v.Exists() {
		cfg.PaletteChars = v.String()
	}
	if v := gjson.Get(doc, "log_file"); v.Exists() {
		cfg.LogFile = v.String()
	}
	if v := gjson.Get(doc, "quiet"); v.Exists() {
		cfg.Quiet = v.Bool()
	}
	if v := gjson.Get(doc, "color_output"); v.Exists() {
		cfg.ColorOutput = v.Bool()
	}
	if v := gjson.Get(doc, "admin_grpc_port"); v.Exists() {
		cfg.AdminGRPCPort = int(v.Int())
	}
	if v := gjson.Get(doc, "admin_http_port"); v.Exists() {
		cfg.AdminHTTPPort = int(v.Int())
	}
	if v := gjson.Get(doc, "admin_user"); v.Exists() {
		cfg.AdminUser = v.String()
	}
	if v := gjson.Get(doc, "admin_password"); v.Exists() {
		cfg.AdminPassword = v.String()
	}
	if v := gjson.Get(doc, "db_path"); v.Exists() {
		cfg.DBPath = v.String()
	}
	if v := gjson.Get(doc, "db_dsn"); v.Exists() {
		cfg.DBDSN = v.String()
	}
	return cfg, nil
}
