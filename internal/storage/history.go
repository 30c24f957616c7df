/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Render outcomes stored in the history.
const (
	RenderOK     = "ok"
	RenderFailed = "failed"
)

// Fixed-width so that text ordering matches time ordering.
const historyTimeLayout = "2006-01-02T15:04:05.000000000Z"

// RenderRecord is one row of the render history.
type RenderRecord struct {
	ID       string
	Skill    string
	Path     string
	Pages    int
	Bytes    int64
	Warnings int
	Status   string
	Message  string
	Started  time.Time
	Finished time.Time
}

// Duration is the wall time the render took.
func (r RenderRecord) Duration() time.Duration {
	if r.Finished.Before(r.Started) {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

// language=SQL
// dialect=SQLite
const insertRenderSQL = `INSERT OR REPLACE INTO renders(id, skill, path, pages, bytes, warnings, status, message, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRendersSQL = `SELECT id, skill, path, pages, bytes, warnings, status, COALESCE(message, ''), started_at, finished_at
	FROM renders ORDER BY started_at DESC, id LIMIT ?`

// RecordRender appends rec to the workspace's render history. A missing ID is filled with a new UUID,
// a missing status defaults to RenderOK. The stored record is returned.
func RecordRender(ctx context.Context, root string, rec RenderRecord) (RenderRecord, error) {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = RenderOK
	}
	if rec.Finished.IsZero() {
		rec.Finished = time.Now()
	}
	if rec.Started.IsZero() {
		rec.Started = rec.Finished
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return rec, err
	}
	defer db.Close()
	if _, err := db.ExecContext(ctx, insertRenderSQL,
		rec.ID, rec.Skill, rec.Path, rec.Pages, rec.Bytes, rec.Warnings, rec.Status, rec.Message,
		rec.Started.UTC().Format(historyTimeLayout), rec.Finished.UTC().Format(historyTimeLayout),
	); err != nil {
		return rec, fmt.Errorf("insert render: %w", err)
	}
	return rec, nil
}

// ListRenders returns the newest renders first. limit <= 0 means 50.
func ListRenders(ctx context.Context, root string, limit int) ([]RenderRecord, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, listRendersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()
	var out []RenderRecord
	for rows.Next() {
		var (
			r                 RenderRecord
			started, finished string
			bytes             sql.NullInt64
		)
		if err := rows.Scan(&r.ID, &r.Skill, &r.Path, &r.Pages, &bytes, &r.Warnings, &r.Status, &r.Message, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		r.Bytes = bytes.Int64
		r.Started, _ = time.Parse(historyTimeLayout, started)
		r.Finished, _ = time.Parse(historyTimeLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
