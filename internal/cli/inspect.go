package cli

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"github.com/spf13/cobra"

	"github.com/spider-crawler/scrapekit/internal/charset"
	"github.com/spider-crawler/scrapekit/internal/response"
	"github.com/spider-crawler/scrapekit/internal/storage"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect ID|URL",
	Short: "Show how an archived response is decoded",
	Long: `Inspect reloads an archived response, by ID or by the newest capture of a
URL, and prints every encoding signal it carries: the Content-Type charset, the
byte order mark, the document declaration and the encoding finally used. A
statistical guess is shown next to them for comparison; it never affects
decoding.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().String("encoding", "", "Decode again with this encoding")
	inspectCmd.Flags().Int("preview", 200, "Characters of text to print (0 = all, -1 = none)")
	inspectCmd.Flags().Bool("headers", false, "Print the stored headers")
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	db, err := openArchive(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	id := args[0]
	if strings.Contains(id, "://") {
		records, err := db.FindByURL(id)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return fmt.Errorf("%w: no capture of %s", storage.ErrNotFound, id)
		}
		id = records[0].ID
	}

	m, err := db.Load(id)
	if err != nil {
		return err
	}

	encoding, _ := cmd.Flags().GetString("encoding")
	preview, _ := cmd.Flags().GetInt("preview")
	showHeaders, _ := cmd.Flags().GetBool("headers")

	if encoding != "" {
		tr, ok := response.AsText(m)
		if !ok {
			return fmt.Errorf("%s is a binary response and has no encoding", id)
		}
		if m, err = tr.Replace(response.WithEncoding(encoding)); err != nil {
			return err
		}
	}

	describe(cmd.OutOrStdout(), id, m, describeOptions{preview: preview, headers: showHeaders})
	return nil
}

type describeOptions struct {
	preview int
	headers bool
}

// describe prints the encoding signals of m.
func describe(w io.Writer, id string, m response.Message, opts describeOptions) {
	body := m.Body()
	contentType := m.Headers().GetString("Content-Type")

	fmt.Fprintf(w, "ID:            %s\n", id)
	fmt.Fprintf(w, "URL:           %s\n", m.URL())
	fmt.Fprintf(w, "Status:        %d\n", m.Status())
	fmt.Fprintf(w, "Content-Type:  %s\n", orDash(contentType))
	fmt.Fprintf(w, "Body:          %d bytes\n", len(body))
	if flags := m.Flags(); len(flags) > 0 {
		fmt.Fprintf(w, "Flags:         %s\n", strings.Join(flags, ","))
	}

	if opts.headers {
		for _, line := range strings.Split(m.Headers().String(), "\r\n") {
			if line != "" {
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}

	bom, _ := charset.ReadBOM(body)
	fmt.Fprintf(w, "Header charset: %s\n", orDash(charset.ContentTypeEncoding(contentType)))
	fmt.Fprintf(w, "BOM:           %s\n", orDash(bom))
	fmt.Fprintf(w, "Declared:      %s\n", orDash(charset.BodyDeclaredEncoding(body)))
	fmt.Fprintf(w, "Guess:         %s\n", guessCharset(body, m))

	tr, ok := response.AsText(m)
	if !ok {
		fmt.Fprintf(w, "Kind:          raw\n")
		return
	}

	fmt.Fprintf(w, "Kind:          %s\n", tr.Kind())
	fmt.Fprintf(w, "Encoding:      %s (%s)\n", tr.Encoding(), tr.EncodingSource())

	if opts.preview < 0 {
		return
	}
	text := tr.Text()
	if opts.preview > 0 && utf8.RuneCountInString(text) > opts.preview {
		text = string([]rune(text)[:opts.preview]) + "..."
	}
	fmt.Fprintf(w, "\n%s\n", text)
}

// guessCharset runs a statistical detector over the body.
func guessCharset(body []byte, m response.Message) string {
	if len(body) == 0 {
		return "-"
	}
	detector := chardet.NewTextDetector()
	if tr, ok := response.AsText(m); ok && tr.Kind() == response.KindHTML {
		detector = chardet.NewHtmlDetector()
	}
	result, err := detector.DetectBest(body)
	if err != nil || result == nil {
		return "-"
	}
	name := result.Charset
	if canonical := charset.Canonical(name); canonical != "" {
		name = canonical
	}
	return fmt.Sprintf("%s (%d%% confidence)", name, result.Confidence)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
