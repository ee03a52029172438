// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cache provides a persistent cache of the findings of files,
// keyed by the digest of a file's content and of the configuration
// used to check it.
package cache // import "go.pyscope.dev/cache"

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"go.pyscope.dev/resolve"
	"go.pyscope.dev/syntax"
)

const (
	bucketFindings = "findings"
	schemaVersion  = "3"
	entryTag       = 'F' // first byte of every entry
)

// A Cache is a findings cache backed by a bbolt database.
// It is safe for concurrent use.
type Cache struct {
	db *bolt.DB
}

// Open opens the cache database of the specified name, creating it if
// necessary. Open fails if another process holds the database for
// longer than a second.
func Open(filename string) (*Cache, error) {
	db, err := bolt.Open(filename, 0644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketFindings))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache: %w", err)
	}
	return &Cache{db}, nil
}

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

// Key returns the cache key of a file with the specified content,
// checked under the configuration of the specified fingerprint.
func Key(fingerprint string, src []byte) string {
	h := sha256.New()
	h.Write([]byte(schemaVersion))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write(src)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the findings cached under key, attributed to filename.
// The boolean result reports whether the key was present.
func (c *Cache) Get(key, filename string) ([]resolve.Finding, bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketFindings))
		if v := b.Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	findings, err := decode(filename, data)
	if err != nil {
		return nil, false, fmt.Errorf("cache entry %s: %w", key, err)
	}
	return findings, true, nil
}

// Put records the findings of the file whose key is specified.
func (c *Cache) Put(key string, findings []resolve.Finding) error {
	data, err := encode(findings)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketFindings))
		return b.Put([]byte(key), data)
	})
}

// Len returns the number of entries in the cache.
func (c *Cache) Len() (int, error) {
	var n int
	err := c.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(bucketFindings)).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear deletes every entry of the cache.
func (c *Cache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketFindings)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketFindings))
		return err
	})
}

// An entry is entryTag followed by a protobuf ListValue of Structs,
// one per finding. The file name is not recorded.
func encode(findings []resolve.Finding) ([]byte, error) {
	list := &structpb.ListValue{}
	for _, f := range findings {
		s, err := structpb.NewStruct(map[string]interface{}{
			"line":     float64(f.Pos.Line),
			"col":      float64(f.Pos.Col),
			"name":     f.Name,
			"code":     f.Code,
			"severity": float64(f.Severity),
			"msg":      f.Msg,
			"suggest":  f.Suggestion,
		})
		if err != nil {
			return nil, err
		}
		list.Values = append(list.Values, structpb.NewStructValue(s))
	}
	data, err := proto.Marshal(list)
	if err != nil {
		return nil, err
	}
	return append([]byte{entryTag}, data...), nil
}

func decode(filename string, data []byte) ([]resolve.Finding, error) {
	if len(data) == 0 || data[0] != entryTag {
		return nil, fmt.Errorf("unknown entry format")
	}
	var list structpb.ListValue
	if err := proto.Unmarshal(data[1:], &list); err != nil {
		return nil, err
	}
	file := &filename
	findings := make([]resolve.Finding, 0, len(list.Values))
	for _, v := range list.Values {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("malformed finding %v", v)
		}
		findings = append(findings, resolve.Finding{
			Pos: syntax.MakePosition(file,
				int32(fields["line"].GetNumberValue()),
				int32(fields["col"].GetNumberValue())),
			Name:       fields["name"].GetStringValue(),
			Code:       fields["code"].GetStringValue(),
			Severity:   resolve.Severity(fields["severity"].GetNumberValue()),
			Msg:        fields["msg"].GetStringValue(),
			Suggestion: fields["suggest"].GetStringValue(),
		})
	}
	return findings, nil
}
