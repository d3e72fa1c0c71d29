// Command bulk-delete removes restream definitions straight from the
// Redis store. Maintenance tool for wiping test fleets; the server should
// be stopped or reloaded afterwards.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/edgemux/restream-server/internal/domain/restream"
	redisrepo "github.com/edgemux/restream-server/internal/redis"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// CLI flags
	redisAddr := flag.String("redis", "127.0.0.1:6379", "redis address")
	redisDB := flag.Int("db", 0, "redis database")
	ids := flag.String("ids", "", "comma-separated restream IDs to delete")
	all := flag.Bool("all", false, "delete every stored restream")
	flag.Parse()

	if *ids == "" && !*all {
		fmt.Println("Usage: ./bulk-delete [-redis=<addr>] -ids=<id,id,...> | -all")
		os.Exit(1)
	}

	log := buildLogger()
	log = log.Named("main")

	repo := redisrepo.NewRepository(*redisAddr, *redisDB, log)
	defer repo.Close()

	ctx := context.Background()

	var targets []restream.RestreamID
	if *all {
		specs, err := repo.Restreams.GetAll(ctx)
		if err != nil {
			log.Fatal("listing restreams failed", zap.Error(err))
		}
		for _, spec := range specs {
			targets = append(targets, spec.ID)
		}
	} else {
		for _, raw := range strings.Split(*ids, ",") {
			id, err := restream.ParseRestreamID(strings.TrimSpace(raw))
			if err != nil {
				log.Fatal("bad restream id", zap.String("id", raw), zap.Error(err))
			}
			targets = append(targets, id)
		}
	}

	total := len(targets)
	for idx, id := range targets {
		iterStart := time.Now()

		if err := repo.Restreams.Delete(ctx, id); err != nil {
			log.Fatal("restream deletion failed",
				zap.String("restreamID", string(id)),
				zap.Error(err),
			)
		}

		log.Info("restream deleted",
			zap.String("restreamID", string(id)),
			zap.Int("deleted", idx+1),
			zap.Int("total", total),
			zap.Duration("took", time.Since(iterStart)),
		)
	}
}

func buildLogger() *zap.Logger {
	logConfig := zap.NewDevelopmentConfig()
	logConfig.EncoderConfig.TimeKey = ""
	logConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logConfig.DisableStacktrace = true
	logConfig.DisableCaller = true
	logConfig.Level.SetLevel(zap.DebugLevel)
	return zap.Must(logConfig.Build())
}
