package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/reddit-export/models"
)

// Database archives each run's selected posts and flattened comments so
// a crawl can be re-examined without refetching. The pipeline never
// reads it back; it is a write-behind record of what was exported.
type Database struct {
	db    *sql.DB
	mutex sync.Mutex
	log   *logrus.Logger
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:  db,
		log: log,
	}

	if err := database.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.db.Close()
}

// initTables creates the necessary tables if they don't exist
func (d *Database) initTables() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	// note: in an ideal world, this would be a migration that we could just run once per environment
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		subreddit TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		post_count INTEGER NOT NULL,
		comment_count INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS posts (
		run_id INTEGER NOT NULL,
		id TEXT NOT NULL,
		self_text TEXT,
		created_at TIMESTAMP NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);
	CREATE TABLE IF NOT EXISTS comments (
		run_id INTEGER NOT NULL,
		id TEXT NOT NULL,
		post_id TEXT NOT NULL,
		parent_id TEXT,
		role TEXT NOT NULL,
		body TEXT,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (run_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_comments_post ON comments(run_id, post_id);
	`

	_, err := d.db.Exec(query)
	return err
}

// SaveRun archives one completed run inside a single transaction and
// returns the run id.
func (d *Database) SaveRun(subreddit string, start, end time.Time, posts []models.Post, comments []models.EnrichedComment) (int64, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO runs (subreddit, start_date, end_date, post_count, comment_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		subreddit, start.Format("2006-01-02"), end.Format("2006-01-02"),
		len(posts), len(comments), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	for _, post := range posts {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO posts (run_id, id, self_text, created_at, score)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, post.ID, post.SelfText, post.CreatedAt, post.Score,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save post %s: %w", post.ID, err)
		}
	}

	for _, comment := range comments {
		_, err := tx.Exec(
			`INSERT OR REPLACE INTO comments (run_id, id, post_id, parent_id, role, body, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, comment.CommentID, comment.PostID, comment.ParentID,
			string(comment.Role), comment.Body, comment.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save comment %s: %w", comment.CommentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	d.log.WithFields(logrus.Fields{
		"run_id":   runID,
		"posts":    len(posts),
		"comments": len(comments),
	}).Info("Archived run to database")

	return runID, nil
}

// GetRunCounts returns the archived post and comment counts for a run.
func (d *Database) GetRunCounts(runID int64) (int, int, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	var postCount, commentCount int
	err := d.db.QueryRow(
		`SELECT post_count, comment_count FROM runs WHERE id = ?`, runID,
	).Scan(&postCount, &commentCount)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query run %d: %w", runID, err)
	}

	return postCount, commentCount, nil
}
