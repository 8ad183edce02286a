// Package main seeds the Q&A store with fixture questions.
//
// Intended for demo and development setups: point it at the same
// configuration the server uses and it writes into the same backend.
// It can also mint a bcrypt hash for the moderator password, so the
// plaintext never has to touch the config file.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"mortisplay.ru/qa/internal/app"
	"mortisplay.ru/qa/internal/config"
	"mortisplay.ru/qa/internal/pkg/logger"
	"mortisplay.ru/qa/internal/qa"
	"mortisplay.ru/qa/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fixturesPath := fs.String("file", "seed.yaml", "fixtures file to load")
	hashPassword := fs.String("hash-password", "", "print a bcrypt hash for the given moderator password and exit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *hashPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*hashPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		fmt.Println(string(hash))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	fixtures, err := loadFixtures(*fixturesPath)
	if err != nil {
		return fmt.Errorf("load fixtures: %w", err)
	}

	ctx := context.Background()

	st, err := app.NewStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	logger.Info("Seeding questions",
		zap.String("file", *fixturesPath),
		zap.String("store_driver", cfg.Store.Driver),
		zap.Int("count", len(fixtures)),
	)

	if err := seed(ctx, st, fixtures); err != nil {
		return err
	}

	logger.Info("Seeding completed")
	return nil
}

// fixture is one seeded question. Status defaults to pending; approved
// fixtures show up on the public list right away.
type fixture struct {
	Nickname    string    `yaml:"nickname"`
	Question    string    `yaml:"question"`
	Status      qa.Status `yaml:"status"`
	SubmittedAt time.Time `yaml:"submitted_at"`
}

func loadFixtures(path string) ([]fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Questions []fixture `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Questions, nil
}

func seed(ctx context.Context, st store.Store, fixtures []fixture) error {
	for i, fx := range fixtures {
		nickname, question, err := qa.Validate(fx.Nickname, fx.Question)
		if err != nil {
			return fmt.Errorf("fixture %d: %w", i, err)
		}

		status := fx.Status
		if status == "" {
			status = qa.StatusPending
		}
		if !status.Valid() {
			return fmt.Errorf("fixture %d: unknown status %q", i, fx.Status)
		}

		submittedAt := fx.SubmittedAt
		if submittedAt.IsZero() {
			submittedAt = time.Now().UTC()
		}

		sub, err := st.Create(ctx, qa.NewSubmission{
			Nickname:          nickname,
			Question:          question,
			SubmittedAt:       submittedAt,
			RequesterIdentity: "seed",
		})
		if err != nil {
			return fmt.Errorf("fixture %d: create: %w", i, err)
		}

		if status != qa.StatusPending {
			if err := st.SetStatus(ctx, sub.ID, status); err != nil {
				return fmt.Errorf("fixture %d: set status: %w", i, err)
			}
		}
	}
	return nil
}
