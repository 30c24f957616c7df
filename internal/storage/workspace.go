/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"skillreport/internal/domain"
	applog "skillreport/internal/log"
)

const (
	ManifestFileName = "report.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"

	backupStamp = "20060102-150405"
)

// Subfolders scaffolded in every workspace.
var standardSubDirs = []string{
	ExportsDirName,
	BackupsDirName,
}

// WorkspaceHandle keeps track of a draft loaded from or saved to disk.
// Root is the workspace directory containing report.json and its subfolders.
type WorkspaceHandle struct {
	Root         string
	ManifestPath string
	Report       domain.ReportDocument
}

// ExportsDir is where renders of this workspace land unless another directory is given.
func (h *WorkspaceHandle) ExportsDir() string {
	return filepath.Join(h.Root, ExportsDirName)
}

// InitWorkspace creates a workspace at root (creating it if it doesn't exist),
// scaffolds the standard subfolders and writes the draft transactionally.
func InitWorkspace(root string, doc domain.ReportDocument) (*WorkspaceHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	h := &WorkspaceHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Report:       doc,
	}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing workspace from root. When report.json is missing,
// unparsable or fails the draft schema, the latest backup is used instead.
func Open(root string) (*WorkspaceHandle, error) {
	mpath := filepath.Join(root, ManifestFileName)
	doc, err := readManifest(mpath)
	if err != nil {
		bdoc, berr := openFromLatestBackup(root)
		if berr != nil {
			return nil, fmt.Errorf("open draft: %w; backup attempt: %v", err, berr)
		}
		applog.WithComponent("storage").Warn("draft unreadable, restored latest backup",
			slog.String("root", root), slog.Any("err", err))
		return &WorkspaceHandle{Root: root, ManifestPath: mpath, Report: *bdoc}, nil
	}
	return &WorkspaceHandle{Root: root, ManifestPath: mpath, Report: doc}, nil
}

func readManifest(path string) (domain.ReportDocument, error) {
	var doc domain.ReportDocument
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := ValidateDraftJSON(b); err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse draft: %w", err)
	}
	return doc, nil
}

// Save writes h.Report to disk with transactional semantics and a timestamped
// backup of the previous draft (if present).
func Save(h *WorkspaceHandle) error {
	if h == nil {
		return errors.New("nil WorkspaceHandle")
	}
	if h.Root == "" || h.ManifestPath == "" {
		return errors.New("invalid WorkspaceHandle: missing paths")
	}
	data, err := marshalDraft(h.Report)
	if err != nil {
		return err
	}

	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(h.ManifestPath); statErr == nil {
		bname := fmt.Sprintf("%s.%s.bak", ManifestFileName, time.Now().Format(backupStamp))
		if cerr := copyFile(h.ManifestPath, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current draft: %w", cerr)
		}
	}
	return replaceFile(h.ManifestPath, data)
}

// SaveAs writes the draft into a new workspace root, scaffolding it if needed, and updates the handle.
func SaveAs(h *WorkspaceHandle, newRoot string) error {
	if h == nil {
		return errors.New("nil WorkspaceHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	h.Root = newRoot
	h.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(h)
}

// AutosaveCrashSnapshot writes the in-memory draft next to the backups without
// touching report.json. It returns the path written.
func AutosaveCrashSnapshot(h *WorkspaceHandle) (string, error) {
	if h == nil || h.Root == "" {
		return "", errors.New("invalid WorkspaceHandle")
	}
	data, err := marshalDraft(h.Report)
	if err != nil {
		return "", err
	}
	bdir := filepath.Join(h.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", ManifestFileName, time.Now().Format(backupStamp)))
	if err := writeFileSync(path, data); err != nil {
		return "", fmt.Errorf("write crash snapshot: %w", err)
	}
	return path, nil
}

func marshalDraft(doc domain.ReportDocument) ([]byte, error) {
	if doc.Levels == nil {
		doc.Levels = []domain.Level{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal draft: %w", err)
	}
	return append(data, '\n'), nil
}

// replaceFile writes to a temp file in the same directory, then renames it over path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp %s: %w", base, werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", base, rerr)
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup tries the timestamped backups newest first and returns the first one that loads.
func openFromLatestBackup(root string) (*domain.ReportDocument, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return nil, errors.New("no backups found")
	}
	sort.Sort(sort.Reverse(sort.StringSlice(candidates))) // timestamp in name yields lexicographic order
	var lastErr error
	for _, c := range candidates {
		doc, err := readManifest(c)
		if err == nil {
			return &doc, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}
