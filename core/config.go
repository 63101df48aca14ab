package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env                       string // DEV (local; default), TEST, QA, PROD
		Build                     string
		Debug                     bool
		TestMode                  bool
		AppName                   string
		SecretKey                 string
		DefaultFromEmail          mail.Address
		FrontendBaseURL           string
		PasswordResetTimeoutDelta time.Duration
		DefaultCurrency           string
		RollbarToken              string
		SendgridApiKey            string
		WorkDir                   string

		Server   ServerConfig
		Database DatabaseConfig
		Offline  OfflineConfig
	}

	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		BaseDomain                string // tenants live under <subdomain>.BaseDomain
		TenantHeader              string // fallback when the Host carries no subdomain
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string // "postgres" or "memory"
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	OfflineConfig struct {
		DBPath       string
		APIBaseURL   string
		Subdomain    string
		SyncInterval time.Duration
		PolicyFile   string
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

func newViper(env string) *viper.Viper {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Academia Hub")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("defaultFromName", "Academia Hub")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("defaultCurrency", "USD")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", "localhost:4000")
	v.SetDefault("server.baseDomain", "academiahub.local")
	v.SetDefault("server.tenantHeader", "X-School-Subdomain")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 15*time.Minute)
	v.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "academia")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("offline.dbPath", "academia-local.db")
	v.SetDefault("offline.apiBaseURL", "http://localhost:8000")
	v.SetDefault("offline.subdomain", "")
	v.SetDefault("offline.syncInterval", 30*time.Second)
	v.SetDefault("offline.policyFile", "")

	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", "memory")
	}

	// DEV_SERVER_BASEDOMAIN -> server.baseDomain
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// NewConfig loads the configuration for the current ENV.
// `config/.env.<env>` is loaded first when it exists, real environment variables win.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v := newViper(env)
	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		AppName:  v.GetString("appName"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromName"),
			Address: v.GetString("defaultFromEmail"),
		},
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		DefaultCurrency:           strings.ToUpper(v.GetString("defaultCurrency")),
		RollbarToken:              v.GetString("rollbarToken"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		WorkDir:                   wd,
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			BaseDomain:                strings.ToLower(v.GetString("server.baseDomain")),
			TenantHeader:              v.GetString("server.tenantHeader"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Offline: OfflineConfig{
			DBPath:       v.GetString("offline.dbPath"),
			APIBaseURL:   strings.TrimRight(v.GetString("offline.apiBaseURL"), "/"),
			Subdomain:    v.GetString("offline.subdomain"),
			SyncInterval: v.GetDuration("offline.syncInterval"),
			PolicyFile:   v.GetString("offline.policyFile"),
		},
	}
}

// NewTestConfig returns a Config suitable for unit tests; it never touches the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		Debug:                     false,
		TestMode:                  true,
		AppName:                   "Academia Hub",
		SecretKey:                 "secret",
		DefaultFromEmail:          mail.Address{Name: "Academia Hub", Address: "noreply@localhost"},
		FrontendBaseURL:           "http://localhost:3000",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		DefaultCurrency:           "USD",
		Server: ServerConfig{
			BaseDomain:                "academiahub.local",
			TenantHeader:              "X-School-Subdomain",
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        15 * time.Minute,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			DisableReqLogs:            true,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Offline:  OfflineConfig{SyncInterval: time.Second},
	}
}
