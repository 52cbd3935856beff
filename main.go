package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/api"
	"github.com/brettboylen/reddit-export/db"
	"github.com/brettboylen/reddit-export/export"
	"github.com/brettboylen/reddit-export/models"
	"github.com/brettboylen/reddit-export/pipeline"
	"github.com/brettboylen/reddit-export/utils"
)

func main() {
	envPath := flag.String("env", ".env", "Path to .env file")
	configPath := flag.String("config", "config.json", "Path to config.json file")
	logLevel := flag.String("log-level", "info", "Logging level (debug, info, warn, error)")
	flag.Parse()

	log := setupLogger(*logLevel)
	log.Info("Starting Reddit export")

	config, err := utils.LoadConfig(*envPath, *configPath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	log.WithFields(logrus.Fields{
		"subreddit":  config.Reddit.SubredditName,
		"start_date": config.Reddit.StartDate.Format("2006-01-02"),
		"end_date":   config.Reddit.EndDate.Format("2006-01-02"),
		"top_posts":  config.Reddit.TopPostNumber,
	}).Info("Configuration loaded")

	database, err := db.NewDatabase(config.Database.Path, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer database.Close()

	redditAPI := api.NewRedditAPI(
		config.Reddit.ClientID,
		config.Reddit.ClientSecret,
		config.Reddit.UserAgent,
		config.Reddit.MaxRequestsPerMinute,
		log,
	)

	ctx, cancel := signalContext(log)
	defer cancel()

	if err := run(ctx, config, redditAPI, database, log); err != nil {
		if errors.Is(err, pipeline.ErrNoPosts) {
			log.WithError(err).WithFields(logrus.Fields{
				"subreddit":  config.Reddit.SubredditName,
				"start_date": config.Reddit.StartDate.Format("2006-01-02"),
				"end_date":   config.Reddit.EndDate.Format("2006-01-02"),
			}).Fatal("No posts found for the given subreddit and date range; try widening the window")
		}
		log.WithError(err).Fatal("Export run failed")
	}

	log.Info("Reddit export finished")
}

// run executes one complete pass: fetch, select, flatten the comment
// forests, classify, link, format, archive, export. Nothing is written
// when any step before export fails.
func run(ctx context.Context, config *utils.Config, redditAPI *api.RedditAPI, database *db.Database, log *logrus.Logger) error {
	posts, err := fetchAllTopPosts(ctx, redditAPI, config.Reddit.SubredditName, log)
	if err != nil {
		return err
	}

	p := pipeline.New(config.Reddit.SubredditName, log)

	selected, err := p.SelectPosts(posts, config.Reddit.StartDate, config.Reddit.EndDate, config.Reddit.TopPostNumber)
	if err != nil {
		return err
	}

	log.WithField("count", len(selected)).Info("Selected posts, fetching comments")

	forests := make(map[string][]models.CommentNode, len(selected))
	for _, post := range selected {
		forest, err := redditAPI.FetchCommentForest(ctx, post.ID)
		if err != nil {
			return err
		}
		forests[post.ID] = forest
	}

	records, enriched := p.Process(selected, forests)

	if _, err := database.SaveRun(
		config.Reddit.SubredditName,
		config.Reddit.StartDate, config.Reddit.EndDate,
		selected, enriched,
	); err != nil {
		return err
	}

	writer := export.NewWriter(config.Output.Dir, log)
	if _, err := writer.Write(config.Reddit.SubredditName, config.Reddit.StartDate, config.Reddit.EndDate, records); err != nil {
		return err
	}

	return nil
}

// fetchAllTopPosts walks the subreddit's all-time top listing to
// exhaustion via the pagination cursor.
func fetchAllTopPosts(ctx context.Context, redditAPI *api.RedditAPI, subreddit string, log *logrus.Logger) ([]models.Post, error) {
	var posts []models.Post
	after := ""
	for {
		page, next, err := redditAPI.FetchTopPosts(ctx, subreddit, after)
		if err != nil {
			return nil, err
		}
		posts = append(posts, page...)
		if next == "" || next == after || len(page) == 0 {
			break
		}
		after = next
	}

	log.WithFields(logrus.Fields{
		"subreddit": subreddit,
		"count":     len(posts),
	}).Info("Fetched all top posts")

	return posts, nil
}

// setupLogger sets up the logger with the specified log level
func setupLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return log
}

// signalContext returns a context cancelled on SIGINT/SIGTERM.
func signalContext(log *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.WithField("signal", sig.String()).Info("Shutdown signal received, cancelling fetch")
		cancel()
	}()

	return ctx, cancel
}
