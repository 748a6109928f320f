package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/mdd/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// tsLayout 固定宽度，保证按字符串排序即按时间排序。
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultLimit 是 List 未指定 limit 时返回的条数。
const DefaultLimit = 20

// Entry 是一次已完成扫描的摘要（只保存数字，不保存文件列表或分组）。
type Entry struct {
	ID            string    `json:"id"`
	Path          string    `json:"base_path"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	ExecutionTime float64   `json:"execution_time"`
	TotalFiles    int       `json:"total_files"`
	TotalSize     int64     `json:"total_size"`
	ExactGroups   int       `json:"exact_duplicate_groups"`
	ExactWasted   int64     `json:"exact_duplicate_wasted_space"`
	SizeGroups    int       `json:"size_duplicate_groups"`
	SizePotential int64     `json:"size_duplicate_potential_space"`
	Issues        int       `json:"issues"`
}

// Store 是基于 SQLite 的扫描历史。
type Store struct {
	db     *sql.DB
	dbPath string
	log    zerolog.Logger
}

// Open 打开（必要时创建）dbPath 处的历史库；":memory:" 用于测试。
func Open(dbPath string, log zerolog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// 每个连接都是独立的内存库：固定单连接。
		db.SetMaxOpenConns(1)
	}

	for _, pragma := range []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath, log: log.With().Str("component", "history").Logger()}, nil
}

// Record 保存一次成功扫描的摘要；失败的扫描不记录。
func (s *Store) Record(ctx context.Context, r domain.ScanReport) error {
	if !r.Success {
		return nil
	}
	if r.ID == "" {
		return fmt.Errorf("report id 不能为空")
	}

	st := r.Duplicates.Stats
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, base_path, started_at, finished_at, execution_time,
			total_files, total_size, exact_groups, exact_wasted, size_groups, size_potential, issues)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Path,
		r.StartedAt.UTC().Format(tsLayout), r.FinishedAt.UTC().Format(tsLayout),
		r.ExecutionTime,
		r.ScanStats.TotalFiles, r.ScanStats.TotalSize,
		st.ExactGroups, st.ExactWasted, st.SizeGroups, st.SizePotential,
		len(r.Issues),
	)
	if err != nil {
		return fmt.Errorf("insert scan %s: %w", r.ID, err)
	}
	s.log.Debug().Str("id", r.ID).Str("db", s.dbPath).Msg("已记录扫描历史")
	return nil
}

// List 按开始时间倒序返回最近 limit 条记录；limit<=0 时使用 DefaultLimit。
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, base_path, started_at, finished_at, execution_time,
			total_files, total_size, exact_groups, exact_wasted, size_groups, size_potential, issues
		FROM scans
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e                 Entry
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.Path, &started, &finished, &e.ExecutionTime,
			&e.TotalFiles, &e.TotalSize, &e.ExactGroups, &e.ExactWasted,
			&e.SizeGroups, &e.SizePotential, &e.Issues); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if e.StartedAt, err = time.Parse(tsLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at %q: %w", started, err)
		}
		if e.FinishedAt, err = time.Parse(tsLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at %q: %w", finished, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close 关闭底层数据库连接。
func (s *Store) Close() error {
	return s.db.Close()
}
