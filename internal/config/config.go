// Package config defines the configuration contract and will handle loading and validating environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Canonical environment variable keys.
	KeyTelegramToken = "TELEGRAM_TOKEN"
	KeyAdminID       = "ADMIN_ID"
	KeyMongoURI      = "MONGO_URI"
	KeyMongoDB       = "MONGO_DB"
	KeyAppEnv        = "APP_ENV"
	KeyLogLevel      = "LOG_LEVEL"
	KeyHTTPPort      = "HTTP_PORT"

	KeyChannelID    = "CHANNEL_ID"
	KeyDiaryChatID  = "DIARY_TG_CHAT_ID"
	KeyDiaryJoinURL = "DIARY_TG_JOIN_URL"
	KeySiteURL      = "SITE_URL"
	KeyFormURL      = "FORM_URL"
	KeyLesson1URL   = "LESSON1_URL"
	KeyLesson2URL   = "LESSON2_URL"
	KeyLesson3URL   = "LESSON3_URL"

	KeyFollowupVideo   = "L3_FOLLOWUP_FILE_ID"
	KeyFollowupCaption = "L3_FOLLOWUP_CAPTION"
	KeyFollowupDelay   = "L3_FOLLOWUP_DELAY"

	KeyBannerWelcome     = "BANNER_WELCOME"
	KeyBannerIntro       = "BANNER_INTRO"
	KeyBannerAfterL1     = "BANNER_AFTER_L1"
	KeyBannerAfterL2     = "BANNER_AFTER_L2"
	KeyBannerGate        = "BANNER_GATE"
	KeyBannerPromoCourse = "BANNER_PROMO_COURSE"
	KeyBannerPromoMentor = "BANNER_PROMO_MENTOR"

	KeyAccessNudgeDelays = "ACCESS_REM_DELAYS"
	KeyNextLessonDelay   = "NEXT_LESSON_DELAY"
	KeyGateGraceDelay    = "GATE_GRACE_DELAY"
	KeyQuietWindow       = "QUIET_WINDOW"
	KeyRotationInterval  = "ROTATION_INTERVAL"

	// Allowed environment values.
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// Defaults for optional settings.
	DefaultAppEnv   = EnvProduction
	DefaultLogLevel = "info"
	DefaultHTTPPort = 8080

	// Recommended database names by environment.
	DefaultMongoDBProd = "tg_funnel"
	DefaultMongoDBDev  = "tg_funnel_dev"

	// Default schedule values, seconds where the env var is numeric.
	DefaultAccessNudgeDelays = "120,300,900"
	DefaultNextLessonDelay   = 8 * time.Second
	DefaultFollowupDelay     = 10 * time.Second
	DefaultGateGraceDelay    = 2 * time.Second
	DefaultQuietWindow       = 90 * time.Second
	DefaultRotationInterval  = 5 * time.Hour
)

// VarSpec describes a single configuration key.
type VarSpec struct {
	Key         string // environment variable name
	Example     string // human-friendly sample value
	Required    bool   // whether the bot must refuse to start without this value
	Default     string // default when unset (empty when required)
	Description string // what the variable controls
	Notes       string // extra guidance or policies
}

// Contract enumerates the authoritative configuration keys for the bot.
// .env loading is only permitted when APP_ENV=development; production must rely
// on environment variables supplied by the runtime.
var Contract = []VarSpec{
	{
		Key:         KeyTelegramToken,
		Example:     "123:ABC",
		Required:    true,
		Description: "Telegram Bot Token issued by BotFather.",
	},
	{
		Key:         KeyAdminID,
		Example:     "123456789",
		Description: "Telegram user_id allowed to run admin commands.",
		Notes:       "When unset, admin commands answer everyone.",
	},
	{
		Key:         KeyMongoURI,
		Example:     "mongodb://localhost:27017",
		Required:    true,
		Description: "MongoDB connection string.",
	},
	{
		Key:         KeyMongoDB,
		Example:     DefaultMongoDBProd + " / " + DefaultMongoDBDev,
		Required:    true,
		Description: "MongoDB database name.",
		Notes:       "Recommended: production=" + DefaultMongoDBProd + ", development=" + DefaultMongoDBDev + ".",
	},
	{
		Key:         KeyChannelID,
		Example:     "-1001234567890",
		Description: "Primary funnel channel id; join requests there trigger the welcome push.",
	},
	{
		Key:         KeyDiaryChatID,
		Example:     "-1009876543210",
		Description: "Diary channel id; the lesson-3 gate checks membership or a recorded join request there.",
		Notes:       "When unset, the lesson-3 gate is disabled.",
	},
	{
		Key:         KeyDiaryJoinURL,
		Example:     "https://t.me/+abcdef",
		Description: "Invite link rendered on the subscribe affordance of the gate prompt.",
	},
	{
		Key:         KeySiteURL,
		Example:     "https://example.com/course",
		Required:    true,
		Description: "Course landing page used by the buy affordances.",
	},
	{
		Key:         KeyFormURL,
		Example:     "https://forms.example.com/apply",
		Description: "Application form linked from the final promo block.",
	},
	{
		Key:         KeyAppEnv,
		Example:     EnvDevelopment + " / " + EnvProduction,
		Default:     DefaultAppEnv,
		Description: "Runtime environment; controls log format and dotenv usage.",
		Notes:       "Load .env files only when APP_ENV=" + EnvDevelopment + ".",
	},
	{
		Key:         KeyLogLevel,
		Example:     DefaultLogLevel,
		Default:     DefaultLogLevel,
		Description: "Overrides default log level.",
	},
	{
		Key:         KeyHTTPPort,
		Example:     strconv.Itoa(DefaultHTTPPort),
		Default:     strconv.Itoa(DefaultHTTPPort),
		Description: "HTTP health/diagnostics port.",
	},
	{
		Key:         KeyAccessNudgeDelays,
		Example:     DefaultAccessNudgeDelays,
		Default:     DefaultAccessNudgeDelays,
		Description: "Comma-separated delays in seconds for the get-access nudges after entry.",
	},
	{
		Key:         KeyQuietWindow,
		Example:     "90",
		Default:     "90",
		Description: "Seconds of outbound silence required before an automated rotation send.",
	},
	{
		Key:         KeyRotationInterval,
		Example:     "18000",
		Default:     "18000",
		Description: "Seconds between promotional rotation posts for one user.",
	},
}

// Config mirrors resolved configuration values after loading.
type Config struct {
	TelegramToken string
	AdminID       int64
	MongoURI      string
	MongoDB       string
	AppEnv        string
	LogLevel      string
	HTTPPort      int

	ChannelID    int64
	DiaryChatID  int64
	DiaryJoinURL string
	SiteURL      string
	FormURL      string
	LessonURLs   [3]string

	FollowupVideoRef string
	FollowupCaption  string
	FollowupDelay    time.Duration

	Banners Banners

	AccessNudgeDelays []time.Duration
	NextLessonDelay   time.Duration
	GateGraceDelay    time.Duration
	QuietWindow       time.Duration
	RotationInterval  time.Duration
}

// Banners holds the optional banner image references attached above the
// funnel's text blocks. Empty values mean the block is sent text-only.
type Banners struct {
	Welcome     string
	Intro       string
	AfterL1     string
	AfterL2     string
	Gate        string
	PromoCourse string
	PromoMentor string
}

// Load resolves configuration from the environment (with optional dotenv in development).
func Load() (Config, error) {
	appEnv, err := resolveAppEnv()
	if err != nil {
		return Config{}, err
	}

	if err := loadDotEnv(appEnv); err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:           firstNonEmpty(normalizeEnv(os.Getenv(KeyAppEnv)), appEnv),
		TelegramToken:    strings.TrimSpace(os.Getenv(KeyTelegramToken)),
		MongoURI:         strings.TrimSpace(os.Getenv(KeyMongoURI)),
		MongoDB:          strings.TrimSpace(os.Getenv(KeyMongoDB)),
		LogLevel:         firstNonEmpty(strings.TrimSpace(os.Getenv(KeyLogLevel)), DefaultLogLevel),
		HTTPPort:         DefaultHTTPPort,
		DiaryJoinURL:     strings.TrimSpace(os.Getenv(KeyDiaryJoinURL)),
		SiteURL:          strings.TrimSpace(os.Getenv(KeySiteURL)),
		FormURL:          strings.TrimSpace(os.Getenv(KeyFormURL)),
		FollowupVideoRef: trimRef(os.Getenv(KeyFollowupVideo)),
		FollowupCaption:  strings.TrimSpace(os.Getenv(KeyFollowupCaption)),
		NextLessonDelay:  DefaultNextLessonDelay,
		FollowupDelay:    DefaultFollowupDelay,
		GateGraceDelay:   DefaultGateGraceDelay,
		QuietWindow:      DefaultQuietWindow,
		RotationInterval: DefaultRotationInterval,
	}

	if err := validateAppEnv(cfg.AppEnv); err != nil {
		return Config{}, err
	}

	missing := make([]string, 0)

	if cfg.TelegramToken == "" {
		missing = append(missing, KeyTelegramToken)
	}
	if cfg.MongoURI == "" {
		missing = append(missing, KeyMongoURI)
	}
	if cfg.MongoDB == "" {
		missing = append(missing, KeyMongoDB)
	}
	if cfg.SiteURL == "" {
		missing = append(missing, KeySiteURL)
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variable(s): %s", strings.Join(missing, ", "))
	}

	if !strings.HasPrefix(cfg.MongoURI, "mongodb://") && !strings.HasPrefix(cfg.MongoURI, "mongodb+srv://") {
		return Config{}, fmt.Errorf("invalid %s: must start with mongodb:// or mongodb+srv://", KeyMongoURI)
	}

	ids := []struct {
		key string
		dst *int64
	}{
		{KeyAdminID, &cfg.AdminID},
		{KeyChannelID, &cfg.ChannelID},
		{KeyDiaryChatID, &cfg.DiaryChatID},
	}
	for _, spec := range ids {
		raw := strings.TrimSpace(os.Getenv(spec.key))
		if raw == "" {
			continue
		}
		id, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", spec.key, parseErr)
		}
		*spec.dst = id
	}

	for i, key := range []string{KeyLesson1URL, KeyLesson2URL, KeyLesson3URL} {
		cfg.LessonURLs[i] = firstNonEmpty(strings.TrimSpace(os.Getenv(key)), cfg.SiteURL)
	}

	httpPortRaw := strings.TrimSpace(os.Getenv(KeyHTTPPort))
	if httpPortRaw != "" {
		port, parseErr := strconv.Atoi(httpPortRaw)
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", KeyHTTPPort, parseErr)
		}
		if port <= 0 {
			return Config{}, fmt.Errorf("%s must be greater than 0", KeyHTTPPort)
		}
		cfg.HTTPPort = port
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{KeyNextLessonDelay, &cfg.NextLessonDelay},
		{KeyFollowupDelay, &cfg.FollowupDelay},
		{KeyGateGraceDelay, &cfg.GateGraceDelay},
		{KeyQuietWindow, &cfg.QuietWindow},
		{KeyRotationInterval, &cfg.RotationInterval},
	}
	for _, spec := range durations {
		seconds, parseErr := parseSeconds(os.Getenv(spec.key))
		if parseErr != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", spec.key, parseErr)
		}
		if seconds > 0 {
			*spec.dst = seconds
		}
	}

	cfg.Banners = Banners{
		Welcome:     strings.TrimSpace(os.Getenv(KeyBannerWelcome)),
		Intro:       strings.TrimSpace(os.Getenv(KeyBannerIntro)),
		AfterL1:     strings.TrimSpace(os.Getenv(KeyBannerAfterL1)),
		AfterL2:     strings.TrimSpace(os.Getenv(KeyBannerAfterL2)),
		Gate:        strings.TrimSpace(os.Getenv(KeyBannerGate)),
		PromoCourse: strings.TrimSpace(os.Getenv(KeyBannerPromoCourse)),
		PromoMentor: strings.TrimSpace(os.Getenv(KeyBannerPromoMentor)),
	}

	nudgeRaw := firstNonEmpty(strings.TrimSpace(os.Getenv(KeyAccessNudgeDelays)), DefaultAccessNudgeDelays)
	delays, err := parseDelayList(nudgeRaw)
	if err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyAccessNudgeDelays, err)
	}
	cfg.AccessNudgeDelays = delays

	return cfg, nil
}

// IsDevelopment reports if APP_ENV is development.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// GateEnabled reports whether the lesson-3 subscription gate is configured.
func (c Config) GateEnabled() bool {
	return c.DiaryChatID != 0
}

// FormatRedacted renders a human-readable configuration summary with secret
// values masked, suitable for the --config-only diagnostic output.
func FormatRedacted(c Config) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s=%s\n", KeyTelegramToken, redactToken(c.TelegramToken))
	fmt.Fprintf(&b, "%s=%d\n", KeyAdminID, c.AdminID)
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoURI, redactURI(c.MongoURI))
	fmt.Fprintf(&b, "%s=%s\n", KeyMongoDB, c.MongoDB)
	fmt.Fprintf(&b, "%s=%s\n", KeyAppEnv, c.AppEnv)
	fmt.Fprintf(&b, "%s=%s\n", KeyLogLevel, c.LogLevel)
	fmt.Fprintf(&b, "%s=%d\n", KeyHTTPPort, c.HTTPPort)
	fmt.Fprintf(&b, "%s=%d\n", KeyChannelID, c.ChannelID)
	fmt.Fprintf(&b, "%s=%d\n", KeyDiaryChatID, c.DiaryChatID)
	fmt.Fprintf(&b, "%s=%s\n", KeySiteURL, c.SiteURL)
	fmt.Fprintf(&b, "%s=%s\n", KeyQuietWindow, c.QuietWindow)
	fmt.Fprintf(&b, "%s=%s", KeyRotationInterval, c.RotationInterval)

	return b.String()
}

func redactToken(token string) string {
	if token == "" {
		return ""
	}
	if idx := strings.IndexByte(token, ':'); idx > 0 {
		return token[:idx] + ":***"
	}
	return "***"
}

func redactURI(uri string) string {
	at := strings.LastIndexByte(uri, '@')
	scheme := strings.Index(uri, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return uri
	}
	return uri[:scheme+3] + "***@" + uri[at+1:]
}

func resolveAppEnv() (string, error) {
	if explicit := normalizeEnv(os.Getenv(KeyAppEnv)); explicit != "" {
		return explicit, nil
	}

	dotEnvValues, err := godotenv.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultAppEnv, nil
		}
		return "", fmt.Errorf("read .env: %w", err)
	}

	if envFromFile := normalizeEnv(dotEnvValues[KeyAppEnv]); envFromFile != "" {
		return envFromFile, nil
	}

	return DefaultAppEnv, nil
}

func loadDotEnv(appEnv string) error {
	if appEnv != EnvDevelopment {
		return nil
	}

	if err := godotenv.Load(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}

	return nil
}

func validateAppEnv(appEnv string) error {
	if appEnv == EnvDevelopment || appEnv == EnvProduction {
		return nil
	}

	return fmt.Errorf("invalid %s: must be %q or %q", KeyAppEnv, EnvDevelopment, EnvProduction)
}

func parseSeconds(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}

	seconds, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, fmt.Errorf("must not be negative, got %d", seconds)
	}

	return time.Duration(seconds) * time.Second, nil
}

func parseDelayList(raw string) ([]time.Duration, error) {
	parts := strings.Split(raw, ",")
	delays := make([]time.Duration, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		seconds, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("delay %q: %w", part, err)
		}
		if seconds <= 0 {
			return nil, fmt.Errorf("delay %q: must be positive", part)
		}
		delays = append(delays, time.Duration(seconds)*time.Second)
	}

	if len(delays) == 0 {
		return nil, errors.New("no delays configured")
	}

	return delays, nil
}

// trimRef strips whitespace plus the invisible characters that tend to sneak in
// when a file id is copied out of a chat message.
func trimRef(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "\u200B\uFEFF\u2060")
}

func normalizeEnv(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func firstNonEmpty(values ...string) string {
	for _, val := range values {
		if strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}
