/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the report data model: a skill made of levels, each level made of tasks.
// Documents are plain values; the renderer works on a Clone and never mutates its input.

import "strings"

// ReportDocument is the root of a skill report. It serializes to a human-readable JSON
// draft (report.json) and can also be written by hand as YAML.
type ReportDocument struct {
	SkillName  string  `json:"skillName" yaml:"skill_name"`
	AuthorName string  `json:"authorName,omitempty" yaml:"author_name,omitempty"`
	AuthorRole string  `json:"authorRole,omitempty" yaml:"author_role,omitempty"`
	Levels     []Level `json:"levels" yaml:"levels"`
}

// Level groups tasks that live in one course folder.
type Level struct {
	Name   string `json:"name" yaml:"name"`
	Folder string `json:"folder" yaml:"folder"` // full path; the report shows ShortenFolder(Folder)
	Tasks  []Task `json:"tasks" yaml:"tasks"`
}

// Task is a single exercise.
type Task struct {
	Question     string `json:"question" yaml:"question"`
	SolutionFile string `json:"solutionFile" yaml:"solution_file"`
	CodeSnippet  string `json:"codeSnippet,omitempty" yaml:"code_snippet,omitempty"`
	ImagePath    string `json:"imagePath,omitempty" yaml:"image_path,omitempty"` // empty => placeholder image
}

// HasAuthor reports whether the author block should be rendered.
func (d ReportDocument) HasAuthor() bool {
	return strings.TrimSpace(d.AuthorName) != "" || strings.TrimSpace(d.AuthorRole) != ""
}

// TaskCount returns the number of tasks across all levels.
func (d ReportDocument) TaskCount() int {
	n := 0
	for _, l := range d.Levels {
		n += len(l.Tasks)
	}
	return n
}

// Clone returns a deep copy, safe to hand to a background render while the form keeps editing.
func (d ReportDocument) Clone() ReportDocument {
	out := d
	if d.Levels == nil {
		return out
	}
	out.Levels = make([]Level, len(d.Levels))
	for i, l := range d.Levels {
		out.Levels[i] = l
		if l.Tasks != nil {
			out.Levels[i].Tasks = append([]Task(nil), l.Tasks...)
		}
	}
	return out
}

// ShortenFolder returns the display label of a level folder: the last three non-empty path
// segments joined by "/". Both "\" and "/" separate segments. Paths with fewer than three
// segments are returned unchanged.
func ShortenFolder(folder string) string {
	parts := strings.Split(strings.ReplaceAll(folder, `\`, "/"), "/")
	segs := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			segs = append(segs, p)
		}
	}
	if len(segs) < 3 {
		return folder
	}
	return strings.Join(segs[len(segs)-3:], "/")
}
