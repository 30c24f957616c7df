/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed report.schema.json
var draftSchemaJSON []byte

var (
	draftSchemaOnce sync.Once
	draftSchema     *gojsonschema.Schema
	draftSchemaErr  error
)

// SchemaError lists every place a draft deviates from the report.json schema.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("draft does not match schema: %s", strings.Join(e.Problems, "; "))
}

// DraftSchema returns the JSON schema report.json drafts are checked against.
func DraftSchema() []byte { return draftSchemaJSON }

// ValidateDraftJSON checks raw report.json bytes against the draft schema.
// It only checks structure; content rules (required skill name etc.) belong to domain.Validate.
func ValidateDraftJSON(data []byte) error {
	draftSchemaOnce.Do(func() {
		draftSchema, draftSchemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(draftSchemaJSON))
	})
	if draftSchemaErr != nil {
		return fmt.Errorf("load draft schema: %w", draftSchemaErr)
	}
	res, err := draftSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("parse draft: %w", err)
	}
	if res.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, e := range res.Errors() {
		se.Problems = append(se.Problems, e.String())
	}
	return se
}
