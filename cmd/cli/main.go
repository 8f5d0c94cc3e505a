package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/SergeiKhy/tinylink/internal/config"
	"github.com/SergeiKhy/tinylink/internal/models"
	"github.com/SergeiKhy/tinylink/internal/repository"
	"github.com/SergeiKhy/tinylink/internal/service"
	"go.uber.org/zap"
)

const usage = "expected 'create', 'get', 'list', 'delete' or 'watch' subcommands"

func main() {
	createCmd := flag.NewFlagSet("create", flag.ExitOnError)
	createURL := createCmd.String("url", "", "target URL (http:// or https://)")
	createCode := createCmd.String("code", "", "custom code, 6-8 alphanumeric characters (optional)")

	getCmd := flag.NewFlagSet("get", flag.ExitOnError)
	getCode := getCmd.String("code", "", "short code")

	deleteCmd := flag.NewFlagSet("delete", flag.ExitOnError)
	deleteCode := deleteCmd.String("code", "", "short code")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if os.Args[1] == "watch" {
		doWatch(ctx, cfg, logger)
		return
	}

	linkRepo, closeDB, err := repository.OpenLinkRepository(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer closeDB()

	// Изменения из CLI тоже видны подписчикам событий
	var sinks []service.EventSink
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		sinks = append(sinks, repository.NewEventRepository(redis, cfg.Events.Channel))
	}
	dispatcher := service.NewEventDispatcher(sinks, zap.NewNop())
	dispatcher.Start()
	defer dispatcher.Stop()

	linkService := service.NewLinkService(linkRepo, dispatcher, zap.NewNop())

	switch os.Args[1] {
	case "create":
		createCmd.Parse(os.Args[2:])
		err = doCreate(ctx, linkService, cfg.App.BaseURL, *createURL, *createCode)
	case "get":
		getCmd.Parse(os.Args[2:])
		err = doGet(ctx, linkService, *getCode)
	case "list":
		err = doList(ctx, linkService)
	case "delete":
		deleteCmd.Parse(os.Args[2:])
		err = doDelete(ctx, linkService, *deleteCode)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		dispatcher.Stop()
		closeDB()
		os.Exit(1)
	}
}

func doCreate(ctx context.Context, links service.LinkService, baseURL, url, code string) error {
	url = strings.TrimSpace(url)
	if err := service.ValidateTargetURL(url); err != nil {
		return errors.New("invalid URL: must start with http:// or https://")
	}

	input := &models.CreateLinkInput{TargetURL: url}
	if code = strings.TrimSpace(code); code != "" {
		input.CustomCode = &code
	}

	link, err := links.CreateLink(ctx, input)
	switch {
	case errors.Is(err, service.ErrInvalidCodeFormat):
		return errors.New("code must be 6-8 alphanumeric characters")
	case errors.Is(err, service.ErrCodeAlreadyExists):
		return errors.New("code already exists")
	case err != nil:
		return err
	}

	fmt.Printf("Created! Your code: %s (%s/%s)\n", link.Code, strings.TrimRight(baseURL, "/"), link.Code)
	return nil
}

func doGet(ctx context.Context, links service.LinkService, code string) error {
	link, err := links.GetLink(ctx, code)
	if errors.Is(err, service.ErrNotFound) {
		return errors.New("no such code exists")
	}
	if err != nil {
		return err
	}
	return printJSON(link)
}

func doList(ctx context.Context, links service.LinkService) error {
	all, err := links.ListLinks(ctx)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		fmt.Println("No links yet.")
		return nil
	}
	return printJSON(all)
}

func doDelete(ctx context.Context, links service.LinkService, code string) error {
	if code == "" {
		return errors.New("-code is required")
	}
	if err := links.DeleteLink(ctx, code); err != nil {
		return err
	}
	fmt.Println("Deleted!")
	return nil
}

// doWatch печатает события реестра до прерывания
func doWatch(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	if !cfg.Redis.Enabled() {
		logger.Fatal("watch requires REDIS_HOST")
	}

	redis, err := repository.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redis.Close()

	events, err := repository.NewEventRepository(redis, cfg.Events.Channel).Subscribe(ctx)
	if err != nil {
		logger.Fatal("Failed to subscribe", zap.Error(err))
	}

	for event := range events {
		fmt.Printf("%s %-13s %s\n", event.OccurredAt.Format("2006-01-02T15:04:05Z07:00"), event.Type, event.Code)
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
