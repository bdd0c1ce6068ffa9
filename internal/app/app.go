// Package app assembles a review session from configuration. Both the HTTP
// server and the CLI build their session here.
package app

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gonkalabs/gonka-redact-go/internal/audit"
	"github.com/gonkalabs/gonka-redact-go/internal/config"
	"github.com/gonkalabs/gonka-redact-go/internal/layout"
	"github.com/gonkalabs/gonka-redact-go/internal/pdfdoc"
	"github.com/gonkalabs/gonka-redact-go/internal/review"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize/entityfile"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize/llmclassifier"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize/ner"
	"github.com/gonkalabs/gonka-redact-go/internal/signer"
)

// App is a wired review session plus the resources it owns.
type App struct {
	Session   *review.Session
	Suggester *sanitize.Suggester
	Audit     *audit.Log // nil when AUDIT_DB is unset
	Signer    *signer.Signer
}

// Build wires the classifiers, layout engine, renderer, signer and audit log
// described by cfg.
func Build(cfg *config.Cfg) (*App, error) {
	suggester, err := Suggester(cfg)
	if err != nil {
		return nil, err
	}

	metrics, err := pdfdoc.GoRegularMetrics()
	if err != nil {
		return nil, err
	}
	engine := layout.NewEngine(metrics.Width,
		layout.WithPaperSize(cfg.PageSize),
		layout.WithFontSize(cfg.FontSize),
		layout.WithLineSpacing(cfg.LineSpacing),
		layout.WithMargins(layout.Margins{
			Top:    cfg.PageMargin,
			Bottom: cfg.PageMargin,
			Left:   cfg.PageMargin,
			Right:  cfg.PageMargin,
		}),
	)
	if err := engine.Validate(); err != nil {
		return nil, err
	}

	a := &App{Suggester: suggester}
	exporter := &review.Exporter{
		Mask:     cfg.MaskChar,
		Layout:   engine,
		Renderer: pdfdoc.NewRenderer(cfg.FontSize),
	}

	if cfg.AttestKey != "" {
		s, err := signer.New(cfg.AttestKey)
		if err != nil {
			return nil, err
		}
		a.Signer = s
		exporter.Attester = s
		slog.Info("export: attestation enabled", "signer", s.Address())
	}

	if cfg.AuditDB != "" {
		log, err := audit.Open(cfg.AuditDB)
		if err != nil {
			return nil, err
		}
		a.Audit = log
		exporter.Audit = log
		slog.Info("export: audit log enabled", "path", cfg.AuditDB)
	}

	a.Session = review.New(pdfdoc.Extractor{}, suggester, exporter)
	return a, nil
}

// Suggester builds the classifier fan-out enabled by cfg.
func Suggester(cfg *config.Cfg) (*sanitize.Suggester, error) {
	var classifiers []sanitize.Classifier

	if cfg.EntitiesFile != "" {
		ef, err := entityfile.Load(cfg.EntitiesFile)
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, ef)
		slog.Info("sanitize: entity file layer enabled", "path", cfg.EntitiesFile, "entities", ef.Len())
	}
	if cfg.SanitizeNER {
		classifiers = append(classifiers, ner.New(cfg.SanitizeNERURL))
		slog.Info("sanitize: NER layer enabled", "url", cfg.SanitizeNERURL)
	}
	if cfg.SanitizeLLM {
		classifiers = append(classifiers, llmclassifier.New(cfg.SanitizeLLMURL, cfg.SanitizeLLMModel))
		slog.Info("sanitize: LLM layer enabled",
			"url", cfg.SanitizeLLMURL,
			"model", cfg.SanitizeLLMModel,
		)
	}

	s := sanitize.NewSuggester(classifiers...)
	s.Budget = cfg.SanitizeBudget
	s.MinConfidence = cfg.SanitizeMinConfidence
	if s.Len() == 0 {
		slog.Warn("sanitize: no classifiers configured, documents load without suggestions")
	}
	return s, nil
}

// Close releases the audit database.
func (a *App) Close() error {
	if a.Audit == nil {
		return nil
	}
	return a.Audit.Close()
}

// ParseLevel maps LOG_LEVEL to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
