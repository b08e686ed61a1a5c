package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/internal/prefs"
	"github.com/tubequeue/tubequeue/pkg/queuesync"
)

var (
	addFormat  string
	addQuality string
	addFolder  string
	addPrefix  string
	addNoStart bool

	addFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "format, f",
			Usage:       "output format (any, mp4, mp3, m4a, opus, wav, flac)",
			Destination: &addFormat,
		},
		cli.StringFlag{
			Name:        "quality, q",
			Usage:       "quality within the chosen format",
			Destination: &addQuality,
		},
		cli.StringFlag{
			Name:        "folder",
			Usage:       "custom download directory",
			Destination: &addFolder,
		},
		cli.StringFlag{
			Name:        "prefix",
			Usage:       "custom filename prefix",
			Destination: &addPrefix,
		},
		cli.BoolFlag{
			Name:        "no-start",
			Usage:       "queue the download without starting it",
			Destination: &addNoStart,
		},
	}
)

func add(ctx *cli.Context) error {
	rawURL := ctx.Args().First()
	if rawURL == "" || rawURL == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}

	dir, err := prefs.ConfigDir()
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "config_dir", err)
		return nil
	}
	pm := prefs.NewManager(nil, dir)
	p, err := pm.Load()
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "load_prefs", err)
		return nil
	}

	format := addFormat
	if format == "" {
		format = p.Format
	}
	f, ok := queuesync.FormatByID(format)
	if !ok {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("unknown format %q", format))
	}
	quality := addQuality
	if quality == "" {
		quality = p.Quality
	}
	// Switching formats narrows the quality set; fall back to the
	// format's default when the remembered value no longer applies.
	quality = f.QualityOrDefault(quality)

	sess, err := dialSession(context.Background())
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "connect", err)
		return nil
	}
	defer sess.close()

	err = sess.syncer.AddDownload(context.Background(), ctypes.AddParams{
		URL:              rawURL,
		Format:           f.ID,
		Quality:          quality,
		Folder:           addFolder,
		CustomNamePrefix: addPrefix,
		AutoStart:        !addNoStart && p.AutoStart,
	})
	if err != nil {
		common.PrintRuntimeErr(ctx, "add", "add_download", err)
		return nil
	}

	// Remember the last-used selection for next time.
	p.Format = f.ID
	p.Quality = quality
	if err := pm.Save(p); err != nil {
		common.PrintRuntimeErr(ctx, "add", "save_prefs", err)
	}

	fmt.Printf("tubequeue: queued %s (%s/%s)\n", rawURL, f.ID, quality)
	return nil
}
