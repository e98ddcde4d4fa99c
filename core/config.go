package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName          string
		Build            string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		WorkDir          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Storage  StorageConfig
		Cache    CacheConfig
		Auth     AuthConfig
		Uploads  UploadsConfig
		Jobs     JobsConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSOrigins               []string
		BodyLimit                 string
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	StorageConfig struct {
		Endpoint      string
		AccessKey     string
		SecretKey     string
		Bucket        string
		Region        string
		UseTLS        bool
		PresignExpiry time.Duration
	}

	CacheConfig struct {
		Addr          string
		Password      string
		DB            int
		SuggestionTTL time.Duration
	}

	AuthConfig struct {
		EmailDomain            string
		BcryptCost             int
		VerificationTimeout    time.Duration
		PasswordResetTimeout   time.Duration
		VerificationTokenBytes int
	}

	UploadsConfig struct {
		AvatarMaxBytes    int64
		AvatarSize        int
		MaterialMaxBytes  int64
		MaterialAllowExts []string
	}

	JobsConfig struct {
		QuizReminderSpec   string
		QuizReminderWindow time.Duration
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// NewConfig loads the configuration of the current ENV.
// Values are read from the environment (prefixed with the ENV name) and from `config/.env.<env>` if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("appName", "SonaLink")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "k2v^9x+lq)0z!8s@sonalink-dev-secret-f#w1t(e3h")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("defaultFromEmail", "SonaLink <noreply@sona.ac.in>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0")
	v.SetDefault("serverPort", "5000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverShutdownTimeout", 10*time.Second)
	v.SetDefault("jwtExpirationDelta", 24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("corsOrigins", "http://localhost:5173")
	v.SetDefault("bodyLimit", "12M")

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseName", "sonalink")
	v.SetDefault("databaseUser", "sonalink")
	v.SetDefault("databasePassword", "sonalink")
	v.SetDefault("databaseAdminUser", "postgres")
	v.SetDefault("databaseAdminPassword", "postgres")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("storageEndpoint", "localhost:9000")
	v.SetDefault("storageAccessKey", "minioadmin")
	v.SetDefault("storageSecretKey", "minioadmin")
	v.SetDefault("storageBucket", "sonalink")
	v.SetDefault("storageRegion", "us-east-1")
	v.SetDefault("storageUseTLS", false)
	v.SetDefault("storagePresignExpiry", 15*time.Minute)

	v.SetDefault("cacheAddr", "localhost:6379")
	v.SetDefault("cachePassword", "")
	v.SetDefault("cacheDB", 0)
	v.SetDefault("cacheSuggestionTTL", 2*time.Minute)

	v.SetDefault("authEmailDomain", "sona.ac.in")
	v.SetDefault("authBcryptCost", 12)
	v.SetDefault("authVerificationTimeout", 3*24*time.Hour)
	v.SetDefault("authPasswordResetTimeout", time.Hour)
	v.SetDefault("authVerificationTokenBytes", 32)

	v.SetDefault("uploadsAvatarMaxBytes", int64(2<<20))
	v.SetDefault("uploadsAvatarSize", 300)
	v.SetDefault("uploadsMaterialMaxBytes", int64(10<<20))
	v.SetDefault("uploadsMaterialAllowExts", "jpeg,jpg,png,gif,pdf,doc,docx,ppt,pptx")

	v.SetDefault("jobsQuizReminderSpec", "0 8 * * *")
	v.SetDefault("jobsQuizReminderWindow", 24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		AppName:          v.GetString("appName"),
		Build:            v.GetString("build"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmail: *from,
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Port:                      v.GetString("serverPort"),
			DebugHost:                 v.GetString("serverDebugHost"),
			ShutdownTimeout:           v.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
			CORSOrigins:               splitList(v.GetString("corsOrigins")),
			BodyLimit:                 v.GetString("bodyLimit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Storage: StorageConfig{
			Endpoint:      v.GetString("storageEndpoint"),
			AccessKey:     v.GetString("storageAccessKey"),
			SecretKey:     v.GetString("storageSecretKey"),
			Bucket:        v.GetString("storageBucket"),
			Region:        v.GetString("storageRegion"),
			UseTLS:        v.GetBool("storageUseTLS"),
			PresignExpiry: v.GetDuration("storagePresignExpiry"),
		},
		Cache: CacheConfig{
			Addr:          v.GetString("cacheAddr"),
			Password:      v.GetString("cachePassword"),
			DB:            v.GetInt("cacheDB"),
			SuggestionTTL: v.GetDuration("cacheSuggestionTTL"),
		},
		Auth: AuthConfig{
			EmailDomain:            CleanString(v.GetString("authEmailDomain"), true /* lower */),
			BcryptCost:             v.GetInt("authBcryptCost"),
			VerificationTimeout:    v.GetDuration("authVerificationTimeout"),
			PasswordResetTimeout:   v.GetDuration("authPasswordResetTimeout"),
			VerificationTokenBytes: v.GetInt("authVerificationTokenBytes"),
		},
		Uploads: UploadsConfig{
			AvatarMaxBytes:    v.GetInt64("uploadsAvatarMaxBytes"),
			AvatarSize:        v.GetInt("uploadsAvatarSize"),
			MaterialMaxBytes:  v.GetInt64("uploadsMaterialMaxBytes"),
			MaterialAllowExts: splitList(v.GetString("uploadsMaterialAllowExts")),
		},
		Jobs: JobsConfig{
			QuizReminderSpec:   v.GetString("jobsQuizReminderSpec"),
			QuizReminderWindow: v.GetDuration("jobsQuizReminderWindow"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: TEST env, no outbound services.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.Auth.BcryptCost = 4 // bcrypt.MinCost
	return conf
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = CleanString(p, true /* lower */); p != "" {
			list = append(list, p)
		}
	}
	return list
}
