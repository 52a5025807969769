// Package split implements "split" command: cutting large stylesheets into
// pages small enough for hosts with limited number of rules per sheet.
package split

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"pagesheet/archive"
	"pagesheet/css"
	"pagesheet/sheet"
	"pagesheet/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("split")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Flags.Overwrite = cmd.Bool("overwrite")
	env.Flags.Capacity = int(cmd.Int("capacity"))
	if env.Flags.Capacity < 0 {
		log.Warn("Negative page capacity requested, using configured one", zap.Int("capacity", env.Flags.Capacity))
		env.Flags.Capacity = 0
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.Flags.ZipCodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.Flags.ZipCodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.Flags.ZipCodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.Flags.ZipCodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst), zap.Int("capacity", env.SheetOptions().Capacity))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. Path may continue inside archive.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		style, enc, err := isStyleFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if style && len(tail) == 0 {
			file, err := os.Open(head)
			if err != nil {
				return fmt.Errorf("unable to open stylesheet: %w", err)
			}
			defer file.Close()
			return processSheet(ctx, selectReader(file, enc), filepath.Base(head), head, dst, log)
		}
		return fmt.Errorf("input was not recognized as stylesheet (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir finds all stylesheets and archives under dir and processes them
// in natural order of their paths.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) error {
	var paths []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if info.Mode().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(paths))

	count := 0
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if isArchive {
			count++
			if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		style, enc, err := isStyleFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}
		if !style {
			log.Debug("Skipping file, not recognized as stylesheet or archive", zap.String("file", path))
			continue
		}
		count++

		if err := processFile(ctx, path, rel, enc, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
	}
	if count == 0 {
		log.Debug("Nothing to process", zap.String("dir", dir))
	}
	return nil
}

func processFile(ctx context.Context, path, rel string, enc srcEncoding, dst string, log *zap.Logger) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return processSheet(ctx, selectReader(file, enc), rel, path, dst, log)
}

// processArchive walks all files inside archive, finds stylesheets under
// "pathIn" and processes them. Results go under "pathOut" relative to
// destination.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) error {
	count := 0
	err := archive.Walk(path, pathIn, state.EnvFromContext(ctx).Flags.ZipCodePage, func(archive, name string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		style, enc, err := isStyleInArchive(name, f)
		if err != nil {
			log.Warn("Skipping file in archive", zap.String("archive", archive), zap.String("file", name), zap.Error(err))
			return nil
		}
		if !style {
			log.Debug("Skipping file, not recognized as stylesheet", zap.String("archive", archive), zap.String("file", name))
			return nil
		}
		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", archive), zap.String("file", name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processSheet(ctx, selectReader(r, enc), filepath.Join(pathOut, filepath.FromSlash(name)), "", dst, log); err != nil {
			log.Error("Unable to process file in archive", zap.String("archive", archive), zap.String("file", name), zap.Error(err))
		}
		return nil
	})
	if err == nil && count == 0 {
		log.Debug("Nothing to process", zap.String("archive", path))
	}
	return err
}

// processSheet splits single stylesheet. "src" is source path relative to
// what was requested and determines output names, "origin" is absolute path
// of the source file when it is not inside archive.
func processSheet(ctx context.Context, r io.Reader, src, origin, dst string, log *zap.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := state.EnvFromContext(ctx)

	log.Info("Splitting starting", zap.String("from", src))
	pages := 0
	defer func(start time.Time) {
		log.Info("Splitting completed", zap.String("from", src), zap.Int("pages", pages), zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet (%s): %w", src, err)
	}

	parsed := css.NewSplitter(log).Split(data, src)
	for _, w := range parsed.Warnings {
		log.Warn("Stylesheet problem", zap.String("source", src), zap.String("details", w))
	}

	store := sheet.New(env.SheetOptions(), nil, log)
	if err := store.Inject(); err != nil {
		return err
	}
	defer func() {
		if err := store.Flush(); err != nil {
			log.Warn("Unable to release stylesheet", zap.Error(err))
		}
	}()

	for _, rule := range parsed.Rules {
		if _, err := store.Insert(rule); err != nil {
			return fmt.Errorf("unable to store rule: %w", err)
		}
	}

	out := buildOutputs(src, dst, env)
	if env.Rpt != nil {
		env.Rpt.StoreData(fmt.Sprintf("layout-%s.txt", out.base), []byte(store.Layout()))
	}

	written, err := writePages(store, out, origin, env)
	pages = len(written)
	if err != nil {
		return err
	}
	if pages == 0 {
		log.Warn("Stylesheet has no rules, nothing written", zap.String("from", src))
		return nil
	}

	if env.Cfg.Output.Index {
		if err := writeIndex(out, written, origin, env); err != nil {
			return err
		}
	}
	return nil
}

// writePages saves every non empty page into its own file and returns names
// of written files.
func writePages(store *sheet.Store, out outputs, origin string, env *state.LocalEnv) ([]string, error) {
	var written []string
	for i := range store.PageCount() {
		rules, err := store.PageRules(i)
		if err != nil {
			return written, err
		}
		if len(rules) == 0 {
			continue
		}
		name := out.page(env.Cfg.Output.PageSuffix, len(written)+1)
		if err := writeSheet(filepath.Join(out.dir, name), origin, &css.Stylesheet{Rules: rules}, env); err != nil {
			return written, err
		}
		written = append(written, name)
	}
	return written, nil
}

// writeIndex produces stylesheet importing all pages in order.
func writeIndex(out outputs, pages []string, origin string, env *state.LocalEnv) error {
	index := &css.Stylesheet{Rules: make([]string, 0, len(pages))}
	for _, p := range pages {
		index.Rules = append(index.Rules, css.ImportRule(p))
	}
	return writeSheet(filepath.Join(out.dir, out.index()), origin, index, env)
}

func writeSheet(name, origin string, content *css.Stylesheet, env *state.LocalEnv) error {
	if origin != "" && filepath.Clean(origin) == filepath.Clean(name) {
		return fmt.Errorf("output file would replace its source: %s", name)
	}
	if err := prepareOutput(name, env); err != nil {
		return err
	}

	var buf bytes.Buffer
	if _, err := content.WriteTo(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(name, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("unable to write stylesheet: %w", err)
	}
	env.Rpt.StoreData("result-"+filepath.Base(name), buf.Bytes())
	return nil
}
