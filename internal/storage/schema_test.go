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
	"os"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

func TestDraftConformsToSchema(t *testing.T) {
	h, err := InitWorkspace(t.TempDir(), sampleReport())
	if err != nil {
		t.Fatalf("InitWorkspace error: %v", err)
	}
	data, err := os.ReadFile(h.ManifestPath)
	if err != nil {
		t.Fatalf("read draft: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(DraftSchema()), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("draft does not conform to schema")
	}
}

func TestValidateDraftJSONReportsProblems(t *testing.T) {
	cases := []struct {
		name string
		json string
		ok   bool
	}{
		{"minimal", `{"skillName":"","levels":[]}`, true},
		{"null levels", `{"skillName":"x","levels":null}`, true},
		{"missing levels", `{"skillName":"x"}`, false},
		{"unknown key", `{"skillName":"x","levels":[],"extra":1}`, false},
		{"task wrong type", `{"skillName":"x","levels":[{"name":"a","folder":"b","tasks":[{"question":1,"solutionFile":"f"}]}]}`, false},
	}
	for _, tc := range cases {
		err := ValidateDraftJSON([]byte(tc.json))
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
	if err := ValidateDraftJSON([]byte("{nope")); err == nil {
		t.Fatalf("expected parse error")
	}
}
