/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

// Form state that does not depend on Fyne. The widgets in app_fyne.go read and write
// through formModel so the editing rules can be tested headless.

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"skillreport/internal/domain"
	"skillreport/internal/export"
)

// formModel is the draft being edited. Index arguments out of range are ignored.
type formModel struct {
	doc   domain.ReportDocument
	dirty bool
}

func newFormModel(doc domain.ReportDocument) *formModel {
	if doc.Levels == nil {
		doc.Levels = []domain.Level{}
	}
	return &formModel{doc: doc}
}

// Snapshot returns a copy that later edits do not affect.
func (m *formModel) Snapshot() domain.ReportDocument { return m.doc.Clone() }

func (m *formModel) validLevel(li int) bool { return li >= 0 && li < len(m.doc.Levels) }

func (m *formModel) validTask(li, ti int) bool {
	return m.validLevel(li) && ti >= 0 && ti < len(m.doc.Levels[li].Tasks)
}

func (m *formModel) SetHeader(skill, author, role string) {
	if m.doc.SkillName == skill && m.doc.AuthorName == author && m.doc.AuthorRole == role {
		return
	}
	m.doc.SkillName, m.doc.AuthorName, m.doc.AuthorRole = skill, author, role
	m.dirty = true
}

// AddLevel appends an empty level with one empty task and returns its index.
func (m *formModel) AddLevel() int {
	n := len(m.doc.Levels) + 1
	m.doc.Levels = append(m.doc.Levels, domain.Level{
		Name:  fmt.Sprintf("Level %d", n),
		Tasks: []domain.Task{{}},
	})
	m.dirty = true
	return n - 1
}

func (m *formModel) RemoveLevel(li int) {
	if !m.validLevel(li) {
		return
	}
	m.doc.Levels = append(m.doc.Levels[:li], m.doc.Levels[li+1:]...)
	m.dirty = true
}

// MoveLevel swaps level li with its neighbour in direction dir (-1 up, +1 down).
func (m *formModel) MoveLevel(li, dir int) {
	to := li + dir
	if !m.validLevel(li) || !m.validLevel(to) {
		return
	}
	m.doc.Levels[li], m.doc.Levels[to] = m.doc.Levels[to], m.doc.Levels[li]
	m.dirty = true
}

func (m *formModel) SetLevel(li int, name, folder string) {
	if !m.validLevel(li) {
		return
	}
	lvl := &m.doc.Levels[li]
	if lvl.Name == name && lvl.Folder == folder {
		return
	}
	lvl.Name, lvl.Folder = name, folder
	m.dirty = true
}

// AddTask appends an empty task to level li and returns its index, or -1.
func (m *formModel) AddTask(li int) int {
	if !m.validLevel(li) {
		return -1
	}
	m.doc.Levels[li].Tasks = append(m.doc.Levels[li].Tasks, domain.Task{})
	m.dirty = true
	return len(m.doc.Levels[li].Tasks) - 1
}

func (m *formModel) RemoveTask(li, ti int) {
	if !m.validTask(li, ti) {
		return
	}
	tasks := m.doc.Levels[li].Tasks
	m.doc.Levels[li].Tasks = append(tasks[:ti], tasks[ti+1:]...)
	m.dirty = true
}

func (m *formModel) UpdateTask(li, ti int, fn func(t *domain.Task)) {
	if !m.validTask(li, ti) {
		return
	}
	before := m.doc.Levels[li].Tasks[ti]
	fn(&m.doc.Levels[li].Tasks[ti])
	if m.doc.Levels[li].Tasks[ti] != before {
		m.dirty = true
	}
}

// ReplaceLevels swaps in imported levels; header fields are kept.
func (m *formModel) ReplaceLevels(levels []domain.Level) {
	if levels == nil {
		levels = []domain.Level{}
	}
	m.doc.Levels = levels
	m.dirty = true
}

// validationText formats a validation failure the way the form dialog shows it.
func validationText(err error) string {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	var b strings.Builder
	b.WriteString("Please fix the following issues:")
	for _, p := range ve.Problems {
		b.WriteString("\n• ")
		b.WriteString(p)
	}
	return b.String()
}

// successText is the message shown after a render completed.
func successText(res export.Result, elapsed time.Duration) string {
	msg := fmt.Sprintf("PDF saved to:\n%s\n\n%d pages, %s, %s",
		res.Path, res.Pages, humanize.Bytes(uint64(res.Bytes)), elapsed.Round(time.Millisecond))
	if n := len(res.Warnings); n > 0 {
		msg += fmt.Sprintf("\n%d warning(s); see the log for details.", n)
	}
	return msg
}

// Recent workspaces are kept in the app preferences as a JSON array.
const (
	recentPrefsKey = "recent.workspaces"
	recentMax      = 8
)

func decodeRecent(raw string) []string {
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func encodeRecent(items []string) string {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	return string(b)
}

// pushRecent moves path to the front of items, dropping duplicates (case-insensitive,
// so Windows paths differing only in case collapse).
func pushRecent(items []string, path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return items
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	out := make([]string, 0, len(items)+1)
	out = append(out, path)
	for _, s := range items {
		if !strings.EqualFold(s, path) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	return out
}

// taskTitle labels a task card.
func taskTitle(ti int, t domain.Task) string {
	q := strings.TrimSpace(t.Question)
	if i := strings.IndexByte(q, '\n'); i >= 0 {
		q = q[:i]
	}
	if r := []rune(q); len(r) > 48 {
		q = string(r[:48]) + "…"
	}
	if q == "" {
		return fmt.Sprintf("Task %d", ti+1)
	}
	return fmt.Sprintf("Task %d: %s", ti+1, q)
}
