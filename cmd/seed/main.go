package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"inkflow/internal/auth"
	"inkflow/internal/config"
	"inkflow/internal/repository/postgres"
	"inkflow/internal/service"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating schema (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed demo data")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: no destructive operations against production tables
	if cfg.Environment == "prod" && *dropTables {
		log.Fatal("BLOCKED: cannot run --drop-tables in production environment")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	log.Printf("Setting up database (environment: %s, prefix: %s)", cfg.Environment, cfg.TablePrefix)

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Println("Dropping all tables...")
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *schemaOnly {
		return
	}

	// Demo account and novel for local development.
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	userRepo := postgres.NewUserRepository(repoConfig)
	novelRepo := postgres.NewNovelRepository(repoConfig)

	issuer := auth.NewAccessTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL, logger)
	authService := service.NewAuthService(userRepo, issuer, logger)
	novelService := service.NewNovelService(novelRepo, logger)

	result, err := authService.Register(ctx, service.RegisterInput{
		Name:     "Demo Reader",
		Email:    "demo@inkflow.local",
		Password: "demo-password",
	})
	if err != nil {
		// Re-running the seeder against an existing database is fine.
		log.Printf("Demo user not created (may already exist): %v", err)
		return
	}
	log.Printf("Demo user created: %s", result.User.ID)

	novel, err := novelService.Create(ctx, result.User.ID, service.CreateNovelInput{
		Title:             "雾海孤舟",
		Genre:             "wuxia",
		Description:       "一名落魄剑客在迷雾笼罩的海疆寻找失踪师门的下落。",
		BackgroundSetting: "架空的明代海疆，雾海中散布着被遗忘的岛屿门派。",
		CharacterSetting:  "主角沈孤舟，三十岁，剑法超群但身负旧伤。",
	})
	if err != nil {
		log.Fatalf("Failed to create demo novel: %v", err)
	}
	log.Printf("Demo novel created: %s", novel.ID)
	log.Println("Seeding complete")
}

// runSchema creates tables if they don't exist
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	createUsers := `
		CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUsers); err != nil {
		return err
	}

	createNovels := `
		CREATE TABLE IF NOT EXISTS ` + tables.Novels + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			genre TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			background_setting TEXT NOT NULL DEFAULT '',
			character_setting TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createNovels); err != nil {
		return err
	}

	createChapters := `
		CREATE TABLE IF NOT EXISTS ` + tables.Chapters + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			novel_id UUID NOT NULL REFERENCES ` + tables.Novels + `(id) ON DELETE CASCADE,
			chapter_number INTEGER NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			summary TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			content_length INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'generating',
			session_id TEXT,
			generation_started_at TIMESTAMPTZ,
			generation_completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(novel_id, chapter_number)
		)
	`
	if _, err := pool.Exec(ctx, createChapters); err != nil {
		return err
	}

	createOptions := `
		CREATE TABLE IF NOT EXISTS ` + tables.Options + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			chapter_id UUID NOT NULL REFERENCES ` + tables.Chapters + `(id) ON DELETE CASCADE,
			option_order INTEGER NOT NULL,
			option_text TEXT NOT NULL,
			impact_hint TEXT NOT NULL DEFAULT '',
			tags JSONB,
			weight_factors JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(chapter_id, option_order)
		)
	`
	if _, err := pool.Exec(ctx, createOptions); err != nil {
		return err
	}

	createUserChoices := `
		CREATE TABLE IF NOT EXISTS ` + tables.UserChoices + ` (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL REFERENCES ` + tables.Users + `(id) ON DELETE CASCADE,
			chapter_id UUID NOT NULL REFERENCES ` + tables.Chapters + `(id) ON DELETE CASCADE,
			option_id UUID NOT NULL REFERENCES ` + tables.Options + `(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`
	if _, err := pool.Exec(ctx, createUserChoices); err != nil {
		return err
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `novels_user_id ON ` + tables.Novels + `(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `chapters_novel_id ON ` + tables.Chapters + `(novel_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `options_chapter_id ON ` + tables.Options + `(chapter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `user_choices_user_id ON ` + tables.UserChoices + `(user_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse order (to respect foreign keys)
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	for _, table := range []string{
		tables.UserChoices,
		tables.Options,
		tables.Chapters,
		tables.Novels,
		tables.Users,
	} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}
