/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"testing"

	"skillreport/internal/domain"
)

func seededRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	doc := sampleReport()
	doc.Levels = append(doc.Levels, domain.Level{
		Name:   "Level 2",
		Folder: "/home/ada/course/Day2",
		Tasks: []domain.Task{
			{Question: "Write a while loop that counts down", SolutionFile: "2.1-countdown.py", CodeSnippet: "n = 3\nwhile n:\n    n -= 1"},
		},
	})
	if err := RebuildIndex(context.Background(), root, doc); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}
	return root
}

func TestSearchFullText(t *testing.T) {
	root := seededRoot(t)
	ctx := context.Background()
	res, err := Search(ctx, root, SearchQuery{Text: "loop*"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := map[string]bool{}
	for _, r := range res {
		got[r.Path] = true
	}
	for _, want := range []string{"level:1/task:1", "level:2/task:1"} {
		if !got[want] {
			t.Fatalf("missing %s in %+v", want, res)
		}
	}
	// ordered by level then task
	if res[0].Level != 1 {
		t.Fatalf("expected level 1 first, got %+v", res[0])
	}
}

func TestSearchFilters(t *testing.T) {
	root := seededRoot(t)
	ctx := context.Background()

	res, err := Search(ctx, root, SearchQuery{Types: []string{DocCode}, Level: 2})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].Path != "level:2/task:1/code" || res[0].Task != 1 {
		t.Fatalf("unexpected code result: %+v", res)
	}

	res, err = Search(ctx, root, SearchQuery{Contains: "1.2-SUM"})
	if err != nil {
		t.Fatalf("Search contains: %v", err)
	}
	if len(res) != 1 || res[0].Type != DocSolutionFile {
		t.Fatalf("unexpected contains result: %+v", res)
	}

	// LIKE wildcards are literal
	res, err = Search(ctx, root, SearchQuery{Contains: "%"})
	if err != nil {
		t.Fatalf("Search percent: %v", err)
	}
	if len(res) != 0 {
		t.Fatalf("expected no match for literal %%, got %+v", res)
	}

	res, err = Search(ctx, root, SearchQuery{Limit: 2, Offset: 1})
	if err != nil {
		t.Fatalf("Search paging: %v", err)
	}
	if len(res) != 2 {
		t.Fatalf("expected 2 paged rows, got %d", len(res))
	}
}

func TestSearchRequiresRoot(t *testing.T) {
	if _, err := Search(context.Background(), "", SearchQuery{}); err == nil {
		t.Fatalf("expected error")
	}
}
