package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"

	"github.com/gonkalabs/gonka-redact-go/internal/layout"
)

// Cfg holds all runtime configuration loaded from environment variables.
type Cfg struct {
	// Server
	ListenAddr  string // e.g. :8080
	LogLevel    string // LOG_LEVEL=debug|info|warn|error
	MaxUploadMB int64  // MAX_UPLOAD_MB=25

	// Redaction
	MaskChar rune // MASK_CHAR=X

	// Static entity file layer
	EntitiesFile string // ENTITIES_FILE=/data/entities.json

	// NER sidecar layer
	SanitizeNER    bool   // SANITIZE_NER=true enables NER sidecar
	SanitizeNERURL string // SANITIZE_NER_URL=http://sanitize-ner:8001

	// LLM semantic classifier layer
	SanitizeLLM      bool   // SANITIZE_LLM=true enables LLM classifier
	SanitizeLLMURL   string // SANITIZE_LLM_URL=http://ollama:11434
	SanitizeLLMModel string // SANITIZE_LLM_MODEL=qwen3:4b-instruct-2507-q4_K_M

	SanitizeMinConfidence float64       // SANITIZE_MIN_CONFIDENCE=0 (0 = accept all)
	SanitizeBudget        time.Duration // SANITIZE_BUDGET=120s

	// Page layout
	PageSize    layout.PaperSize // PAGE_SIZE=letter|a4
	PageMargin  float64          // PAGE_MARGIN=40 (points, all sides)
	FontSize    float64          // FONT_SIZE=11
	LineSpacing float64          // LINE_SPACING=1.4 (multiple of FONT_SIZE)

	// Export
	AttestKey string // ATTEST_KEY=hex secp256k1 key; empty disables attestation
	AuditDB   string // AUDIT_DB=/data/audit.db; empty disables the audit log
}

// Load reads .env (if present) then environment variables and returns Cfg.
func Load() (*Cfg, error) {
	// Best-effort: load .env from current directory
	_ = godotenv.Load()

	port := env("PORT", "8080")

	maskRaw := env("MASK_CHAR", "X")
	mask, size := utf8.DecodeRuneInString(maskRaw)
	if mask == utf8.RuneError || size != len(maskRaw) {
		return nil, fmt.Errorf("MASK_CHAR must be a single character, got %q", maskRaw)
	}

	var (
		cfg = &Cfg{
			ListenAddr:       ":" + port,
			LogLevel:         strings.ToLower(env("LOG_LEVEL", "info")),
			MaskChar:         mask,
			EntitiesFile:     env("ENTITIES_FILE", ""),
			SanitizeNER:      envBool("SANITIZE_NER"),
			SanitizeNERURL:   env("SANITIZE_NER_URL", "http://sanitize-ner:8001"),
			SanitizeLLM:      envBool("SANITIZE_LLM"),
			SanitizeLLMURL:   env("SANITIZE_LLM_URL", "http://ollama:11434"),
			SanitizeLLMModel: env("SANITIZE_LLM_MODEL", "qwen3:4b-instruct-2507-q4_K_M"),
			AttestKey:        env("ATTEST_KEY", ""),
			AuditDB:          env("AUDIT_DB", ""),
		}
		err error
	)

	switch strings.ToLower(env("PAGE_SIZE", "letter")) {
	case "letter":
		cfg.PageSize = layout.Letter
	case "a4":
		cfg.PageSize = layout.A4
	default:
		return nil, fmt.Errorf("PAGE_SIZE must be letter or a4, got %q", os.Getenv("PAGE_SIZE"))
	}

	if cfg.PageMargin, err = envFloat("PAGE_MARGIN", 40); err != nil {
		return nil, err
	}
	if cfg.FontSize, err = envFloat("FONT_SIZE", 11); err != nil {
		return nil, err
	}
	if cfg.LineSpacing, err = envFloat("LINE_SPACING", 1.4); err != nil {
		return nil, err
	}
	if cfg.SanitizeMinConfidence, err = envFloat("SANITIZE_MIN_CONFIDENCE", 0); err != nil {
		return nil, err
	}
	if cfg.PageMargin < 0 || cfg.FontSize <= 0 || cfg.LineSpacing <= 0 {
		return nil, fmt.Errorf("PAGE_MARGIN must be >= 0, FONT_SIZE and LINE_SPACING > 0")
	}

	cfg.SanitizeBudget = 120 * time.Second
	if raw := env("SANITIZE_BUDGET", ""); raw != "" {
		if cfg.SanitizeBudget, err = time.ParseDuration(raw); err != nil || cfg.SanitizeBudget <= 0 {
			return nil, fmt.Errorf("SANITIZE_BUDGET must be a positive duration, got %q", raw)
		}
	}

	cfg.MaxUploadMB = 25
	if raw := env("MAX_UPLOAD_MB", ""); raw != "" {
		if cfg.MaxUploadMB, err = strconv.ParseInt(raw, 10, 64); err != nil || cfg.MaxUploadMB < 1 {
			return nil, fmt.Errorf("MAX_UPLOAD_MB must be a whole number >= 1, got %q", raw)
		}
	}

	return cfg, nil
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Cfg) MaxUploadBytes() int64 { return c.MaxUploadMB << 20 }

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	return raw == "1" || strings.EqualFold(raw, "true")
}

func envFloat(key string, def float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}
