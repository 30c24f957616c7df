/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package courseimport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"skillreport/internal/domain"
)

// MaxSnippetBytes caps how much of a solution file ends up in a report.
const MaxSnippetBytes = 256 << 10

var (
	ErrSnippetTooLarge = errors.New("solution file too large")
	ErrNotText         = errors.New("solution file is not UTF-8 text")
)

// Warning is a non-fatal problem met while importing or loading code.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string { return fmt.Sprintf("%s: %v", w.Path, w.Err) }

// LoadSnippet reads folder/solutionFile as a code snippet. Leading blank lines and
// trailing whitespace are dropped; indentation of the first code line is kept.
func LoadSnippet(folder, solutionFile string) (string, error) {
	if strings.TrimSpace(solutionFile) == "" {
		return "", errors.New("solution file is empty")
	}
	path := solutionFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(folder, solutionFile)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, MaxSnippetBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	if len(b) > MaxSnippetBytes {
		return "", fmt.Errorf("%s: %w", path, ErrSnippetTooLarge)
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%s: %w", path, ErrNotText)
	}
	return cleanSnippet(string(b)), nil
}

func cleanSnippet(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimRight(s, " \t\r\n")
	for {
		i := strings.IndexByte(s, '\n')
		if i < 0 || strings.TrimSpace(s[:i]) != "" {
			break
		}
		s = s[i+1:]
	}
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}

// FillSnippets loads the code of every task that has a solution file but no snippet yet.
// Failures leave the snippet empty and are returned as warnings.
func FillSnippets(doc *domain.ReportDocument) []Warning {
	var warns []Warning
	for li := range doc.Levels {
		lvl := &doc.Levels[li]
		for ti := range lvl.Tasks {
			t := &lvl.Tasks[ti]
			if t.CodeSnippet != "" || strings.TrimSpace(t.SolutionFile) == "" {
				continue
			}
			if lvl.Folder == "" && !filepath.IsAbs(t.SolutionFile) {
				continue
			}
			code, err := LoadSnippet(lvl.Folder, t.SolutionFile)
			if err != nil {
				warns = append(warns, Warning{Path: filepath.Join(lvl.Folder, t.SolutionFile), Err: err})
				continue
			}
			t.CodeSnippet = code
		}
	}
	return warns
}
