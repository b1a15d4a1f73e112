package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/audioclient"
)

const defaultServer = "http://localhost:4000"

const usage = `audioctl — клиент аудиохранилища.

Usage:
  audioctl [--server URL] <command> [flags] [args]

Commands:
  upload <file>        загрузить файл (--title, --description, --type)
  get <id>             выдать блоб в stdout или --output (--range bytes=a-b)
  download <id>        сохранить блоб под именем с сервера (--output)
  rm <id>              удалить блоб и его документ
  ls                   список документов (--query, --limit)
  edit <id>            изменить заголовок/описание (--title, --description)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	global := pflag.NewFlagSet("audioctl", pflag.ContinueOnError)
	global.SetInterspersed(false)
	server := global.String("server", envOr("AUDIOSTORE_URL", defaultServer), "base URL of the REST service")
	quiet := global.BoolP("quiet", "q", false, "do not draw progress on stderr")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		global.Usage()
		return errors.New("command required")
	}

	c := &cli{api: audioclient.New(*server, nil), quiet: *quiet}
	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "upload":
		return c.upload(ctx, cmdArgs)
	case "get":
		return c.get(ctx, cmdArgs)
	case "download":
		return c.download(ctx, cmdArgs)
	case "rm":
		return c.remove(ctx, cmdArgs)
	case "ls":
		return c.list(ctx, cmdArgs)
	case "edit":
		return c.edit(ctx, cmdArgs)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

type cli struct {
	api   *audioclient.Client
	quiet bool
}

func (c *cli) progress(prefix string, total int64) *audioclient.Progress {
	if c.quiet {
		return nil
	}
	return audioclient.NewProgress(os.Stderr, prefix, total)
}

// parse разбирает флаги подкоманды и проверяет число позиционных аргументов.
func parse(fs *pflag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != positional {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d", fs.Name(), positional, fs.NArg())
	}
	return fs.Args(), nil
}

func (c *cli) upload(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("upload", pflag.ContinueOnError)
	title := fs.String("title", "", "document title")
	description := fs.String("description", "", "document description")
	ctype := fs.String("type", "", "content type (default: by extension)")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	f, err := os.Open(pos[0])
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}
	if *ctype == "" {
		*ctype = mime.TypeByExtension(filepath.Ext(pos[0]))
	}

	bar := c.progress("upload "+filepath.Base(pos[0]), st.Size())
	res, err := c.api.Upload(ctx, audioclient.UploadRequest{
		Filename:    filepath.Base(pos[0]),
		ContentType: *ctype,
		Title:       *title,
		Description: *description,
		Body:        bar.Reader(f),
	})
	if err != nil {
		bar.Finish(err)
		return err
	}

	return printJSON(res)
}

func (c *cli) get(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("get", pflag.ContinueOnError)
	rng := fs.String("range", "", `byte range, e.g. "bytes=0-1023"`)
	output := fs.StringP("output", "o", "", "write to file instead of stdout")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	content, err := c.api.Stream(ctx, pos[0], *rng)
	if err != nil {
		return err
	}
	defer content.Body.Close()

	if content.Partial {
		fmt.Fprintf(os.Stderr, "%s\n", content.ContentRange)
	}
	return c.save(content, *output, "get "+pos[0])
}

func (c *cli) download(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("download", pflag.ContinueOnError)
	output := fs.StringP("output", "o", "", "target file (default: name from the server)")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	content, err := c.api.Download(ctx, pos[0])
	if err != nil {
		return err
	}
	defer content.Body.Close()

	target := *output
	if target == "" {
		target = filepath.Base(content.Filename)
	}
	if target == "" || target == "." || target == string(filepath.Separator) {
		target = pos[0] + ".audio"
	}
	return c.save(content, target, "download "+target)
}

// save пишет тело в файл или stdout ("" или "-").
func (c *cli) save(content *audioclient.Content, target, label string) error {
	var dst io.Writer = os.Stdout
	if target != "" && target != "-" {
		f, err := os.Create(target)
		if err != nil {
			return err
		}
		defer f.Close()
		dst = f
	}

	bar := c.progress(label, content.Length)
	n, err := io.Copy(dst, bar.Reader(content.Body))
	if err != nil {
		return err
	}
	if target != "" && target != "-" {
		fmt.Fprintf(os.Stderr, "saved %s to %s\n", humanize.IBytes(uint64(n)), target)
	}
	return nil
}

func (c *cli) remove(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("rm", pflag.ContinueOnError)
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	return c.api.Delete(ctx, pos[0])
}

func (c *cli) list(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	query := fs.String("query", "", "substring of filename, title or description")
	limit := fs.Int("limit", 0, "max documents (server default 100)")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	docs, err := c.api.List(ctx, *query, *limit)
	if err != nil {
		return err
	}
	for _, d := range docs {
		fmt.Printf("%s  %9s  %s  %s  %s\n",
			d.ID, humanize.IBytes(uint64(d.Length)), humanize.Time(d.UploadedAt), d.Filename, d.Metadata.Title)
	}
	return nil
}

func (c *cli) edit(ctx context.Context, args []string) error {
	fs := pflag.NewFlagSet("edit", pflag.ContinueOnError)
	title := fs.String("title", "", "new title")
	description := fs.String("description", "", "new description")
	pos, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	var patch models.DocumentPatch
	if fs.Changed("title") {
		patch.Title = title
	}
	if fs.Changed("description") {
		patch.Description = description
	}

	doc, err := c.api.Patch(ctx, pos[0], patch)
	if err != nil {
		return err
	}
	return printJSON(doc)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
