// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package catalog

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// FileCatalog is a Lookup backed by a local JSON catalog file: an array
// of Metadata records keyed by their item reference. It serves a library
// export (e.g. a media-server dump) without any network provider and is
// immutable after load.
type FileCatalog struct {
	items map[string]*Metadata
}

// LoadFileCatalog reads a catalog JSON file into memory.
func LoadFileCatalog(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}

	var records []*Metadata
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}

	items := make(map[string]*Metadata, len(records))
	for _, md := range records {
		items[md.Ref.Key()] = md
	}
	return &FileCatalog{items: items}, nil
}

// Len returns the number of catalog records.
func (c *FileCatalog) Len() int {
	return len(c.items)
}

// Details implements Lookup.
func (c *FileCatalog) Details(ctx context.Context, ref Ref) (*Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	md, ok := c.items[ref.Key()]
	if !ok {
		return nil, ErrNotFound
	}
	return md, nil
}
