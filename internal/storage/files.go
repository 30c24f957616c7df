/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"skillreport/internal/domain"
)

// isYAML reports whether path names a YAML draft.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadReportFile reads a standalone draft. Files ending in .yaml or .yml are decoded
// as YAML with unknown keys rejected; anything else is treated as report.json and
// checked against the draft schema.
func LoadReportFile(path string) (domain.ReportDocument, error) {
	var doc domain.ReportDocument
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read draft: %w", err)
	}
	if isYAML(path) {
		dec := yaml.NewDecoder(bytes.NewReader(b))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return doc, fmt.Errorf("parse draft %s: empty document", filepath.Base(path))
			}
			return doc, fmt.Errorf("parse draft %s: %w", filepath.Base(path), err)
		}
		return doc, nil
	}
	if err := ValidateDraftJSON(b); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse draft %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteReportFile writes doc to path as YAML or JSON depending on the extension.
// The file is replaced atomically.
func WriteReportFile(path string, doc domain.ReportDocument) error {
	var data []byte
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = marshalDraft(doc); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create draft dir: %w", err)
	}
	return replaceFile(path, data)
}
