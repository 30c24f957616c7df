/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a search over the task index.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Types restricts to document kinds (question, code, solution_file, folder, level, skill).
// Level is 1-based; 0 means all levels. Contains is a case-insensitive substring filter
// that works without FTS syntax, handy for file names like "1.2-loops.py".
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text     string
	Contains string
	Types    []string
	Level    int
	Limit    int
	Offset   int
}

// SearchResult is a single match. Snippet carries [ ] highlight markers when Text was used.
// Level and Task are 0 for rows that don't belong to one.
type SearchResult struct {
	DocID   int64
	Type    string
	Path    string
	Level   int
	Task    int
	Text    string
	Snippet string
}

// Search runs q against the workspace index.
// When q.Text is empty it scans documents with the filters applied.
func Search(ctx context.Context, root string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.level,0), COALESCE(d.task,0), COALESCE(d.text,''), snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, COALESCE(d.level,0), COALESCE(d.task,0), COALESCE(d.text,''), ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if q.Level > 0 {
		sb.WriteString(" AND d.level = ?\n")
		args = append(args, q.Level)
	}
	if s := strings.TrimSpace(q.Contains); s != "" {
		sb.WriteString(" AND lower(d.text) LIKE ? ESCAPE '\\'\n")
		args = append(args, likeContains(escapeLike(strings.ToLower(s))))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.level NULLS FIRST, d.task NULLS FIRST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &r.Level, &r.Task, &r.Text, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if sn.Valid {
			r.Snippet = sn.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
