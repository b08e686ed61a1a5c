package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/urfave/cli"

	"github.com/tubequeue/tubequeue/cmd/common"
	ctypes "github.com/tubequeue/tubequeue/common"
	"github.com/tubequeue/tubequeue/internal/prefs"
	"github.com/tubequeue/tubequeue/internal/scheduler"
	"github.com/tubequeue/tubequeue/internal/server"
	"github.com/tubequeue/tubequeue/pkg/logger"
	"github.com/tubequeue/tubequeue/pkg/queuecli"
)

var (
	daemonAddr       string
	daemonPublicURL  string
	daemonAudioURL   string
	daemonDirs       string
	daemonAudioDirs  string
	daemonCreateDirs bool

	daemonFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr, a",
			Usage:       "listen address for the daemon",
			Value:       "127.0.0.1:8081",
			Destination: &daemonAddr,
		},
		cli.StringFlag{
			Name:        "public-url",
			Usage:       "public base url for completed video files",
			Destination: &daemonPublicURL,
		},
		cli.StringFlag{
			Name:        "public-audio-url",
			Usage:       "public base url for completed audio files",
			Destination: &daemonAudioURL,
		},
		cli.StringFlag{
			Name:        "dirs",
			Usage:       "comma-separated custom download directories",
			Destination: &daemonDirs,
		},
		cli.StringFlag{
			Name:        "audio-dirs",
			Usage:       "comma-separated custom audio download directories",
			Destination: &daemonAudioDirs,
		},
		cli.BoolFlag{
			Name:        "create-dirs",
			Usage:       "allow clients to submit directories that do not exist yet",
			Destination: &daemonCreateDirs,
		},
	}
)

func splitDirs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, d := range strings.Split(s, ",") {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func daemon(ctx *cli.Context) error {
	lg := logger.NewStandardLogger(log.New(os.Stderr, "", log.LstdFlags))

	secret, err := queuecli.LoadSecret()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "load_secret", err)
		return nil
	}

	cfgDir, err := prefs.ConfigDir()
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config_dir", err)
		return nil
	}
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "config_dir", err)
		return nil
	}

	store, err := scheduler.OpenStore(filepath.Join(cfgDir, "schedules.db"))
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "open_schedules", err)
		return nil
	}
	defer store.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs := splitDirs(daemonDirs)
	audioDirs := splitDirs(daemonAudioDirs)
	cfg := &ctypes.Config{
		CustomDirs:         len(dirs) > 0 || len(audioDirs) > 0,
		CreateCustomDirs:   daemonCreateDirs,
		PublicHostURL:      daemonPublicURL,
		PublicHostAudioURL: daemonAudioURL,
		DownloadDirs:       dirs,
		AudioDownloadDirs:  audioDirs,
	}

	srv := server.New(server.Options{
		Secret: secret,
		Config: cfg,
		Logger: lg,
	})

	// The server exists first so a schedule missed while the daemon was
	// down can fire into its state during scheduler startup.
	svc, err := scheduler.New(runCtx, store, func(url, folder string) {
		srv.State().Add(ctypes.AddParams{URL: url, Folder: folder, AutoStart: true})
	}, lg)
	if err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "start_scheduler", err)
		return nil
	}
	srv.SetScheduler(svc)

	if err := srv.ListenAndServe(runCtx, daemonAddr); err != nil {
		common.PrintRuntimeErr(ctx, "daemon", "serve", err)
	}
	return nil
}
