package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spider-crawler/scrapekit/internal/fetcher"
	"github.com/spider-crawler/scrapekit/internal/renderer"
	"github.com/spider-crawler/scrapekit/internal/response"
	"github.com/spider-crawler/scrapekit/internal/selector"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch URL...",
	Short: "Fetch URLs, decode them and archive the responses",
	Long: `Fetch downloads each URL (or renders it in headless Chromium with --render),
prints the resolved encoding and where it came from, and stores the raw
response in the archive so it can be reloaded later.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().Bool("render", false, "Render pages with headless Chromium")
	fetchCmd.Flags().Int("tabs", 2, "Browser tabs used with --render")
	fetchCmd.Flags().String("encoding", "", "Force this encoding on text responses")
	fetchCmd.Flags().Bool("no-save", false, "Do not archive responses")
	fetchCmd.Flags().String("css", "", "Print the text of elements matching this CSS selector")
	fetchCmd.Flags().String("xpath", "", "Print the results of this XPath query")
	fetchCmd.Flags().Duration("timeout", 0, "Request timeout (overrides config)")
	fetchCmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")
	fetchCmd.Flags().String("screenshot", "", "With --render, save a JPEG screenshot of each page in this directory")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	render, _ := cmd.Flags().GetBool("render")
	tabs, _ := cmd.Flags().GetInt("tabs")
	noSave, _ := cmd.Flags().GetBool("no-save")
	css, _ := cmd.Flags().GetString("css")
	xpath, _ := cmd.Flags().GetString("xpath")
	insecure, _ := cmd.Flags().GetBool("insecure")
	shotDir, _ := cmd.Flags().GetString("screenshot")
	if shotDir != "" && !render {
		return fmt.Errorf("--screenshot needs --render")
	}
	if enc, _ := cmd.Flags().GetString("encoding"); enc != "" {
		cfg.ForceEncoding = enc
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		cfg.Timeout = timeout
		cfg.RenderTimeout = timeout
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var get func(ctx context.Context, url string) (response.Message, error)
	if render {
		r := renderer.NewRenderer(cfg, tabs, &log.Logger)
		defer r.Close()
		get = func(ctx context.Context, url string) (response.Message, error) {
			res, err := r.Render(ctx, url)
			if err != nil {
				return nil, err
			}
			log.Debug().Str("url", url).Str("title", res.Title).Int("resources", len(res.Resources)).
				Dur("render_time", res.RenderTime).Msg("Rendered page")
			if shotDir != "" {
				saveScreenshot(ctx, r, url, shotDir)
			}
			return res.Response, nil
		}
	} else {
		f := fetcher.NewFetcher(cfg, &log.Logger)
		defer f.Close()
		f.SetInsecureSkipVerify(insecure)
		get = func(ctx context.Context, url string) (response.Message, error) {
			res, err := f.Fetch(ctx, url)
			if err != nil {
				return nil, err
			}
			for _, hop := range res.RedirectChain {
				log.Debug().Str("from", hop.URL).Int("status", hop.StatusCode).Str("to", hop.Location).Msg("Redirect")
			}
			return res.Response, nil
		}
	}

	var archive interface {
		Save(response.Message) (string, error)
	}
	if !noSave {
		db, err := openArchive(cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		archive = db
	}

	out := cmd.OutOrStdout()
	failed := 0
	for _, url := range args {
		if ctx.Err() != nil {
			break
		}

		start := time.Now()
		m, err := get(ctx, url)
		if err != nil {
			failed++
			log.Error().Err(err).Str("url", url).Msg("Fetch failed")
			continue
		}

		id := "-"
		if archive != nil {
			if id, err = archive.Save(m); err != nil {
				return err
			}
		}
		printSummary(out, id, m, time.Since(start))

		if tr, ok := response.AsText(m); ok {
			if err := printQueries(out, tr, css, xpath); err != nil {
				log.Warn().Err(err).Str("url", url).Msg("Query failed")
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d fetches failed", failed, len(args))
	}
	return nil
}

func saveScreenshot(ctx context.Context, r *renderer.Renderer, url, dir string) {
	img, err := r.Screenshot(ctx, url, 80)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Screenshot failed")
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn().Err(err).Msg("Cannot create screenshot directory")
		return
	}
	path := filepath.Join(dir, uuid.NewString()+".jpg")
	if err := os.WriteFile(path, img, 0644); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Cannot write screenshot")
		return
	}
	log.Info().Str("url", url).Str("path", path).Msg("Saved screenshot")
}

func printSummary(w io.Writer, id string, m response.Message, elapsed time.Duration) {
	enc, source := "binary", "-"
	if tr, ok := response.AsText(m); ok {
		enc, source = tr.Encoding(), string(tr.EncodingSource())
	}
	flags := strings.Join(m.Flags(), ",")
	if flags == "" {
		flags = "-"
	}
	fmt.Fprintf(w, "%s\t%d\t%s\t%s (%s)\t%d bytes\t%s\t%s\t%v\n",
		id, m.Status(), m.URL(), enc, source, len(m.Body()), response.MediaType(m.Headers().GetString("Content-Type")),
		flags, elapsed.Round(time.Millisecond))
}

func printQueries(w io.Writer, tr *response.TextResponse, css, xpath string) error {
	var results []selector.List
	if css != "" {
		l, err := tr.CSS(css)
		if err != nil {
			return err
		}
		results = append(results, l)
	}
	if xpath != "" {
		l, err := tr.XPath(xpath)
		if err != nil {
			return err
		}
		results = append(results, l)
	}
	for _, l := range results {
		for _, s := range l.Texts() {
			fmt.Fprintf(w, "  %s\n", strings.TrimSpace(s))
		}
	}
	return nil
}
