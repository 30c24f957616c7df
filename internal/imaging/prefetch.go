/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package imaging

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Set holds the outcome of decoding a batch of image paths.
type Set struct {
	mu     sync.RWMutex
	assets map[string]Asset
	errs   map[string]error
}

// Lookup returns the decoded asset for path, or the error recorded while decoding it.
// Paths that were never requested report a *ResourceError.
func (s *Set) Lookup(path string) (Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assets[path]; ok {
		return a, nil
	}
	if err, ok := s.errs[path]; ok {
		return Asset{}, err
	}
	return Asset{}, &ResourceError{Path: path, Err: errNotPrefetched}
}

// Failed returns how many paths could not be decoded.
func (s *Set) Failed() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errs)
}

type prefetchError string

func (e prefetchError) Error() string { return string(e) }

const errNotPrefetched = prefetchError("image was not prefetched")

// Prefetch decodes every distinct non-empty path with at most workers goroutines.
// Individual failures are recorded in the Set and never abort the batch; only
// context cancellation stops it early.
func Prefetch(ctx context.Context, dec Decoder, paths []string, workers int) (*Set, error) {
	if workers <= 0 {
		workers = 1
	}
	set := &Set{assets: map[string]Asset{}, errs: map[string]error{}}
	seen := map[string]bool{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a, err := dec.Decode(p)
			set.mu.Lock()
			if err != nil {
				set.errs[p] = err
			} else {
				set.assets[p] = a
			}
			set.mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return set, err
	}
	return set, nil
}
