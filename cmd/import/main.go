package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/goliatone/go-editorial"
	"github.com/goliatone/go-editorial/cmd/internal/bootstrap"
	"github.com/goliatone/go-editorial/internal/domain"
)

var moduleBuilder = bootstrap.BuildModule

func main() {
	if err := runImport(os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("editorial import: %v", err)
	}
}

// runImport saves every markdown file given as a new draft, or publishes it
// when -publish is set.
func runImport(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("editorial-import", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML config file")
	kindName := fs.String("kind", "article", "Document kind: article or project")
	author := fs.String("author", "", "Author ID recorded on imported documents")
	publishAll := fs.Bool("publish", false, "Publish documents instead of saving drafts")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("at least one markdown file is required")
	}
	kind, err := domain.ParseKind(*kindName)
	if err != nil {
		return err
	}

	module, err := moduleBuilder(bootstrap.Options{ConfigPath: *configPath, Author: *author})
	if err != nil {
		return fmt.Errorf("bootstrap module: %w", err)
	}
	ctx := context.Background()
	defer module.Close(ctx)

	for _, path := range fs.Args() {
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		session, err := module.ImportSession(kind, source)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if *publishAll {
			if _, err := session.RequestPublish(ctx, true); err != nil {
				return fmt.Errorf("%s: %s", path, domain.UserMessage(err))
			}
		} else if _, err := session.RequestManualSave(ctx); err != nil {
			return fmt.Errorf("%s: %s", path, domain.UserMessage(err))
		}
		report(out, path, session)
		if err := module.CloseSession(ctx, session.ID()); err != nil {
			return err
		}
	}
	return nil
}

func report(out io.Writer, path string, session *editorial.Session) {
	snap := session.Snapshot()
	fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", path, snap.Identity, snap.Status, snap.Slug)
}
