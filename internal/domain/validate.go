/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"strings"
)

// ValidationError lists every problem found in a document. A render never starts while one exists.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid report"
	case 1:
		return "invalid report: " + e.Problems[0]
	default:
		return fmt.Sprintf("invalid report (%d problems): %s", len(e.Problems), strings.Join(e.Problems, "; "))
	}
}

// Validate checks the document for required fields and returns a *ValidationError listing
// all problems, or nil. Levels and tasks are numbered from 1 in messages.
func (d ReportDocument) Validate() error {
	var probs []string
	if strings.TrimSpace(d.SkillName) == "" {
		probs = append(probs, "Skill name is required")
	}
	if len(d.Levels) == 0 {
		probs = append(probs, "At least one level is required")
	}
	for i, l := range d.Levels {
		n := i + 1
		if strings.TrimSpace(l.Name) == "" {
			probs = append(probs, fmt.Sprintf("Level %d: Missing level name", n))
		}
		if strings.TrimSpace(l.Folder) == "" {
			probs = append(probs, fmt.Sprintf("Level %d: Missing folder path", n))
		}
		if len(l.Tasks) == 0 {
			probs = append(probs, fmt.Sprintf("Level %d: No tasks added", n))
		}
		for j, t := range l.Tasks {
			if strings.TrimSpace(t.Question) == "" {
				probs = append(probs, fmt.Sprintf("Level %d Task %d: Missing task question", n, j+1))
			}
			if strings.TrimSpace(t.SolutionFile) == "" {
				probs = append(probs, fmt.Sprintf("Level %d Task %d: Missing solution file", n, j+1))
			}
		}
	}
	if len(probs) > 0 {
		return &ValidationError{Problems: probs}
	}
	return nil
}
