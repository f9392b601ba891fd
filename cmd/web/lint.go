package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/villa-azur/web/internal/cms"
	"github.com/villa-azur/web/internal/config"
	"github.com/villa-azur/web/internal/gallery"
	"github.com/villa-azur/web/internal/i18n"
)

var legalPages = []string{"terms", "sales-terms"}

// errLint is returned when lint found problems; the details were already printed.
var errLint = errors.New("lint failed")

func newLintCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check translations, gallery catalogs and content for gaps",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Context(), config.WithEnvFile(root.envFile))
			if err != nil {
				return err
			}
			return lint(cmd.Context(), cmd.OutOrStdout(), cfg)
		},
	}
}

type lintReport struct {
	out      io.Writer
	problems int
}

func (l *lintReport) fail(format string, args ...any) {
	l.problems++
	fmt.Fprintf(l.out, "error: "+format+"\n", args...)
}

func (l *lintReport) warn(format string, args ...any) {
	fmt.Fprintf(l.out, "warn:  "+format+"\n", args...)
}

func lint(_ context.Context, out io.Writer, cfg config.Config) error {
	report := &lintReport{out: out}

	bundle, err := i18n.Load(cfg.Paths.Locales, cfg.Site.DefaultLocale, cfg.Site.Locales)
	if err != nil {
		return err
	}
	for _, lang := range cfg.Site.Locales {
		if !bundle.Has(lang) {
			report.fail("locale %s: no bundle in %s", lang, cfg.Paths.Locales)
			continue
		}
		for _, key := range bundle.Missing(lang) {
			report.fail("locale %s: missing key %s", lang, key)
		}
	}

	for _, name := range []string{"gallery.yaml", "villa.yaml"} {
		catalog, err := gallery.LoadCatalog(filepath.Join(cfg.Paths.Content, name))
		if err != nil {
			report.fail("%s: %v", name, err)
			continue
		}
		for _, item := range catalog.Items() {
			if !catalog.HasCategory(item.Category) {
				report.fail("%s: %s has unknown category %q", name, item.Source, item.Category)
			}
		}
		for _, lang := range bundle.Locales() {
			for _, src := range catalog.MissingAlt(lang) {
				report.fail("%s: %s has no %s alt text", name, src, lang)
			}
		}
	}

	store := cms.NewStore(cfg.Paths.Content, bundle.Fallback(), cms.WithCacheTTL(0))
	for _, slug := range legalPages {
		if _, err := store.Page(cms.KindLegal, slug, bundle.Fallback()); err != nil {
			report.fail("legal/%s/%s: %v", bundle.Fallback(), slug, err)
		}
	}
	for _, lang := range bundle.Locales() {
		for _, kind := range []string{cms.KindLegal, cms.KindDiscover} {
			missing, err := store.Missing(kind, lang)
			if err != nil {
				report.fail("%s/%s: %v", kind, bundle.Fallback(), err)
				continue
			}
			for _, slug := range missing {
				report.warn("%s/%s/%s: not translated, %s copy is served", kind, lang, slug, bundle.Fallback())
			}
		}
	}

	if report.problems > 0 {
		fmt.Fprintf(out, "%d problem(s)\n", report.problems)
		return errLint
	}
	fmt.Fprintln(out, "ok")
	return nil
}
