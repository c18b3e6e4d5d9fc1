package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"labelDesk/internal/config"
	"labelDesk/internal/database"
	"labelDesk/internal/sequence"
	"labelDesk/internal/storage"
)

func main() {
	var (
		current  = flag.Bool("current", false, "显示当前单号与下一个单号")
		setStart = flag.Int64("set-start", 0, "设置下一个单号（只能向前调整）")
		reset    = flag.Int64("reset", 0, "无条件重置下一个单号")
		actor    = flag.String("actor", "", "操作人（默认读 USER）")
	)
	flag.Parse()

	ops := 0
	for _, on := range []bool{*current, *setStart != 0, *reset != 0} {
		if on {
			ops++
		}
	}
	if ops != 1 {
		log.Fatal("exactly one of --current, --set-start, --reset is required")
	}

	name := strings.TrimSpace(*actor)
	if name == "" {
		name = strings.TrimSpace(os.Getenv("USER"))
	}
	if name == "" {
		name = "admin-cli"
	}

	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ctx = sequence.WithActor(ctx, name)

	service := sequence.NewTieredService(cfg.Sequence, redisClient, db, storageClient, logger)

	switch {
	case *setStart != 0:
		if err := service.SetStart(ctx, *setStart); err != nil {
			log.Fatalf("set start: %v", err)
		}
		fmt.Printf("下一个单号已设置为 %d（操作人：%s）\n", *setStart, name)
	case *reset != 0:
		if err := service.Reset(ctx, *reset); err != nil {
			log.Fatalf("reset: %v", err)
		}
		fmt.Printf("单号已重置，下一个单号为 %d（操作人：%s）\n", *reset, name)
	}

	st, err := service.State(ctx)
	if err != nil {
		log.Fatalf("read sequence: %v", err)
	}
	fmt.Printf("当前单号: %d\n", st.Value)
	fmt.Printf("下一个单号: %d\n", st.Value+1)
	if !st.UpdatedAt.IsZero() {
		fmt.Printf("最后更新: %s（%s）\n", st.UpdatedAt.Format(time.RFC3339), st.UpdatedBy)
	}
}
