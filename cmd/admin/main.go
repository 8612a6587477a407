package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"chatResume/internal/config"
	"chatResume/internal/database"
	"chatResume/internal/storage"
)

// 清理工具：删除超过保留期的简历记录与对应的 PDF 对象，
// 以及同样过期的会话快照。
func main() {
	var (
		olderThanDays = flag.Int("older-than-days", 30, "保留期（天），早于该期限的记录会被删除")
		dryRun        = flag.Bool("dry-run", false, "只打印将要删除的记录，不执行删除")
		dbHost        = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort        = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName        = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser        = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass        = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode       = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	if *olderThanDays <= 0 {
		log.Fatal("--older-than-days must be positive")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	var storageClient *storage.Client
	if !*dryRun {
		cfg := config.MustLoad()
		storageClient, err = storage.NewClient(cfg.MinIO)
		if err != nil {
			log.Fatalf("init storage client: %v", err)
		}
	}

	cutoff := time.Now().AddDate(0, 0, -*olderThanDays)
	ctx := context.Background()

	var resumes []database.Resume
	if err := db.Where("updated_at < ?", cutoff).Find(&resumes).Error; err != nil {
		log.Fatalf("query expired resumes: %v", err)
	}

	removed := 0
	for _, resume := range resumes {
		if *dryRun {
			fmt.Printf("would delete resume id=%d session=%s pdf=%s\n", resume.ID, resume.SessionID, resume.PdfUrl)
			continue
		}

		if resume.PdfUrl != "" {
			if err := storageClient.DeleteObject(ctx, resume.PdfUrl); err != nil {
				log.Printf("delete pdf object %q: %v", resume.PdfUrl, err)
				continue
			}
		}
		if err := db.Delete(&database.Resume{}, resume.ID).Error; err != nil {
			log.Printf("delete resume id=%d: %v", resume.ID, err)
			continue
		}
		removed++
	}

	sessionQuery := db.Where("updated_at < ?", cutoff)
	if *dryRun {
		var count int64
		if err := sessionQuery.Model(&database.SessionRecord{}).Count(&count).Error; err != nil {
			log.Fatalf("count expired sessions: %v", err)
		}
		fmt.Printf("would delete %d session snapshots\n", count)
		fmt.Printf("dry run complete, %d resumes matched\n", len(resumes))
		return
	}

	result := sessionQuery.Delete(&database.SessionRecord{})
	if result.Error != nil {
		log.Fatalf("delete expired sessions: %v", result.Error)
	}

	fmt.Printf("deleted %d resumes and %d session snapshots older than %s\n",
		removed, result.RowsAffected, cutoff.Format(time.RFC3339))
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "disable"
	}
	if strings.TrimSpace(name) == "" {
		return config.DatabaseConfig{}, errors.New("database name is required (POSTGRES_DB)")
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
