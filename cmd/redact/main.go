// Command redact reviews and redacts a single document from the terminal.
// It shares configuration with the server (.env and environment variables)
// and runs the same suggestion, layout and export pipeline.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/gonkalabs/gonka-redact-go/internal/app"
	"github.com/gonkalabs/gonka-redact-go/internal/config"
	"github.com/gonkalabs/gonka-redact-go/internal/pdfdoc"
	"github.com/gonkalabs/gonka-redact-go/internal/review"
	"github.com/gonkalabs/gonka-redact-go/internal/sanitize"
)

// CLI defines the command-line interface for redact.
var CLI struct {
	// Global flags
	Entities string `name:"entities" short:"e" help:"Entity file used as the detection oracle (overrides ENTITIES_FILE)" type:"existingfile"`
	Verbose  bool   `short:"v" help:"Log at debug level"`

	Extract ExtractCmd `cmd:"" help:"Print the text extracted from a PDF"`
	Detect  DetectCmd  `cmd:"" help:"List suggested spans for a document"`
	Preview PreviewCmd `cmd:"" help:"Show the document with suggested spans highlighted"`
	Redact  RedactCmd  `cmd:"" help:"Write a redacted PDF"`
}

// ExtractCmd prints extracted text.
type ExtractCmd struct {
	Path string `arg:"" help:"PDF file" type:"existingfile"`
}

func (c *ExtractCmd) Run(ctx *kong.Context) error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		return err
	}
	text, err := pdfdoc.Extractor{}.Extract(context.Background(), data)
	if err != nil {
		return fmt.Errorf("extract %s: %w", c.Path, err)
	}
	fmt.Fprintln(ctx.Stdout, text)
	return nil
}

// DetectCmd lists suggested spans.
type DetectCmd struct {
	Path string `arg:"" help:"PDF or .txt file" type:"existingfile"`
	JSON bool   `name:"json" help:"Print spans as JSON"`
}

func (c *DetectCmd) Run(ctx *kong.Context) error {
	a, snap, err := open(c.Path)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.JSON {
		enc := json.NewEncoder(ctx.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Spans)
	}
	for _, sp := range snap.Spans {
		fmt.Fprintf(ctx.Stdout, "%-24s %-10s %-9s [%d,%d) %q\n",
			sp.ID, sp.Category, sp.Status, sp.Start, sp.End, snap.Text[sp.Start:sp.End])
	}
	fmt.Fprintf(ctx.Stdout, "%d spans (%d pending)\n", snap.Counts.Total, snap.Counts.Pending)
	return nil
}

// PreviewCmd renders highlighted fragments.
type PreviewCmd struct {
	Path  string `arg:"" help:"PDF or .txt file" type:"existingfile"`
	Width int    `short:"w" default:"80" help:"Wrap width in columns"`
}

func (c *PreviewCmd) Run(ctx *kong.Context) error {
	a, snap, err := open(c.Path)
	if err != nil {
		return err
	}
	defer a.Close()

	_, frags, err := a.Session.Fragments()
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, renderPreview(frags, c.Width))
	fmt.Fprintln(ctx.Stdout)
	fmt.Fprintln(ctx.Stdout, legend(snap.Counts))
	return nil
}

// RedactCmd applies review decisions and writes the redacted PDF.
type RedactCmd struct {
	Path       string   `arg:"" help:"PDF or .txt file" type:"existingfile"`
	ConfirmAll bool     `name:"confirm-all" help:"Confirm every suggested span"`
	Confirm    []string `name:"confirm" help:"Confirm span by id (repeatable)"`
	Reject     []string `name:"reject" help:"Reject span by id (repeatable)"`
	Add        []string `name:"add" help:"Redact the first occurrence of TEXT (repeatable)"`
	Out        string   `short:"o" help:"Output path (default: <name>.redacted.pdf next to the input)" type:"path"`
	Text       bool     `help:"Print the redacted text instead of writing a PDF"`
}

func (c *RedactCmd) Run(ctx *kong.Context) error {
	a, snap, err := open(c.Path)
	if err != nil {
		return err
	}
	defer a.Close()
	s := a.Session

	if c.ConfirmAll {
		if _, err := s.SetAll(snap.Generation, string(sanitize.StatusConfirmed)); err != nil {
			return err
		}
	}
	for _, id := range c.Confirm {
		if _, err := s.SetStatus(snap.Generation, id, string(sanitize.StatusConfirmed)); err != nil {
			return err
		}
	}
	for _, id := range c.Reject {
		if _, err := s.SetStatus(snap.Generation, id, string(sanitize.StatusRejected)); err != nil {
			return err
		}
	}
	for _, sel := range c.Add {
		if _, err := s.AddSelection(snap.Generation, sel); err != nil {
			return err
		}
	}

	if c.Text {
		text, err := s.Redacted(snap.Generation)
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Stdout, text)
		return nil
	}

	out, err := s.Export(context.Background(), snap.Generation)
	if err != nil {
		return err
	}
	path := c.Out
	if path == "" {
		path = filepath.Join(filepath.Dir(c.Path), out.FileName)
	}
	if err := os.WriteFile(path, out.PDF, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "wrote %s (%d pages, %d spans redacted, sha256 %s)\n",
		path, out.Pages, out.Applied, out.Digest)
	if att := out.Attestation; att != nil {
		fmt.Fprintf(ctx.Stdout, "signed by %s: %s\n", att.Signer, att.Signature)
	}
	return nil
}

// open builds the pipeline from configuration and loads path into it.
// Files ending in .txt skip PDF extraction.
func open(path string) (*app.App, review.Snapshot, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, review.Snapshot{}, err
	}
	if CLI.Entities != "" {
		cfg.EntitiesFile = CLI.Entities
	}
	a, err := app.Build(cfg)
	if err != nil {
		return nil, review.Snapshot{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		a.Close()
		return nil, review.Snapshot{}, err
	}
	ctx := context.Background()
	name := filepath.Base(path)
	var snap review.Snapshot
	if strings.EqualFold(filepath.Ext(path), ".txt") {
		snap, err = a.Session.LoadText(ctx, name, string(data))
	} else {
		snap, err = a.Session.Load(ctx, name, data)
	}
	if err != nil {
		a.Close()
		return nil, review.Snapshot{}, err
	}
	return a, snap, nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("redact"),
		kong.Description("Review suggested PII in a document and write a redacted PDF"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	level := slog.LevelWarn
	if CLI.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	err := ctx.Run(ctx)
	ctx.FatalIfErrorf(err)
}
