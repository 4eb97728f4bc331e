package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/goliatone/go-editorial"
	"github.com/goliatone/go-editorial/internal/di"
	"github.com/goliatone/go-editorial/internal/identity"
	"github.com/goliatone/go-editorial/internal/upload"
	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// A walkthrough of one editing session: typing, autosave, an image upload and
// a publish.
func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	flag.Parse()

	cfg, err := editorial.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Autosave.Debounce = 500 * time.Millisecond

	module, err := editorial.New(cfg,
		di.WithIdentityProvider(identity.Static{User: &interfaces.User{ID: "example-author", Name: "Example Author"}}),
	)
	if err != nil {
		log.Fatalf("initialise module: %v", err)
	}
	ctx := context.Background()
	defer module.Close(ctx)

	session, err := module.NewSession(editorial.KindArticle)
	if err != nil {
		log.Fatalf("open session: %v", err)
	}

	session.SetTitle("Shipping the editor")
	session.SetBody("<p>Drafts now save themselves.</p>")
	printIndicator("typing", session)

	time.Sleep(800 * time.Millisecond)
	printIndicator("after debounce", session)

	placeholder, err := session.InsertAsset(ctx, upload.Asset{
		Name:        "diagram.png",
		ContentType: "image/png",
		Data:        sampleImage(),
	}, -1)
	if err != nil {
		log.Fatalf("insert asset: %v", err)
	}
	outcome, err := session.Uploads().Await(ctx, placeholder)
	if err != nil || outcome.Err != nil {
		log.Fatalf("upload: %v %v", err, outcome.Err)
	}
	fmt.Printf("uploaded %s -> %s\n", placeholder.Name, outcome.URL)

	result, err := session.RequestPublish(ctx, true)
	if err != nil {
		log.Fatalf("publish: %v", err)
	}
	fmt.Printf("published %s as %q at %s\n", result.Identity, result.Slug, result.PublishedAt.Format(time.RFC3339))
	printIndicator("after publish", session)

	if !session.CanLeave() {
		fmt.Fprintln(os.Stderr, "session still has unsaved work")
	}
}

func printIndicator(stage string, session *editorial.Session) {
	indicator := session.Indicator()
	fmt.Printf("%-15s %-28s status=%s dirty=%t\n", stage, indicator.Label(), indicator.DisplayState, indicator.Dirty)
}

func sampleImage() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	for x := 0; x < 64; x++ {
		for y := 0; y < 32; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 8), B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
