// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/sift/core"
)

// Records are encoded as a fixed sequence of MUS fields. Every record type
// has a single encode function that is run twice: once to size the buffer
// and once to fill it.

// encoder writes MUS encoded fields, or only measures them when bs is nil.
type encoder struct {
	bs  []byte
	off int
}

func (e *encoder) string(v string) {
	if e.bs == nil {
		e.off += ord.String.Size(v)
		return
	}
	e.off += ord.String.Marshal(v, e.bs[e.off:])
}

func (e *encoder) int(v int) {
	if e.bs == nil {
		e.off += varint.Int.Size(v)
		return
	}
	e.off += varint.Int.Marshal(v, e.bs[e.off:])
}

func (e *encoder) int64(v int64) {
	if e.bs == nil {
		e.off += varint.Int64.Size(v)
		return
	}
	e.off += varint.Int64.Marshal(v, e.bs[e.off:])
}

func (e *encoder) float32(v float32) {
	bits := math.Float32bits(v)
	if e.bs == nil {
		e.off += varint.Uint32.Size(bits)
		return
	}
	e.off += varint.Uint32.Marshal(bits, e.bs[e.off:])
}

// time stores microseconds since the epoch; the zero time is stored as 0.
func (e *encoder) time(t time.Time) {
	if t.IsZero() {
		e.int64(0)
		return
	}
	e.int64(t.UnixMicro())
}

func (e *encoder) strings(v []string) {
	e.int(len(v))
	for _, s := range v {
		e.string(s)
	}
}

func (e *encoder) vector(v []float32) {
	e.int(len(v))
	for _, f := range v {
		e.float32(f)
	}
}

// encode runs fn once to size the buffer and once to fill it.
func encode(fn func(e *encoder)) []byte {
	sizer := &encoder{}
	fn(sizer)
	w := &encoder{bs: make([]byte, sizer.off)}
	fn(w)
	return w.bs
}

// decoder reads MUS encoded fields. The first error sticks.
type decoder struct {
	bs  []byte
	off int
	err error
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) int() int {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int.Unmarshal(d.bs[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs[d.off:])
	d.off += n
	d.err = err
	return v
}

func (d *decoder) float32() float32 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Uint32.Unmarshal(d.bs[d.off:])
	d.off += n
	d.err = err
	return math.Float32frombits(v)
}

func (d *decoder) time() time.Time {
	micros := d.int64()
	if micros == 0 {
		return time.Time{}
	}
	return time.UnixMicro(micros).UTC()
}

// length reads a slice length and rejects values the remaining input cannot hold.
func (d *decoder) length() int {
	n := d.int()
	if d.err == nil && (n < 0 || n > len(d.bs)-d.off) {
		d.err = fmt.Errorf("%w: invalid length %d", ErrSerializationFailed, n)
	}
	if d.err != nil {
		return 0
	}
	return n
}

func (d *decoder) strings() []string {
	n := d.length()
	if n == 0 {
		return nil
	}
	v := make([]string, n)
	for i := range v {
		v[i] = d.string()
	}
	return v
}

func (d *decoder) vector() []float32 {
	n := d.length()
	if n == 0 {
		return nil
	}
	v := make([]float32, n)
	for i := range v {
		v[i] = d.float32()
	}
	return v
}

func (d *decoder) finish() error {
	if d.err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, d.err)
	}
	return nil
}

func encodeDocument(e *encoder, doc *core.Document) {
	e.string(doc.Id)
	e.string(doc.Title)
	e.string(doc.Category)
	e.string(doc.Slug)
	e.string(doc.Author)
	e.string(doc.Description)
	e.string(doc.URL)
	e.time(doc.PublishDate)
	e.strings(doc.Tags)
	e.string(doc.Body)
	e.string(doc.ContentHash)
	e.time(doc.IndexedAt)
}

// MarshalDocument serializes a Document to bytes.
func MarshalDocument(doc *core.Document) []byte {
	return encode(func(e *encoder) { encodeDocument(e, doc) })
}

// UnmarshalDocument deserializes a Document from bytes.
func UnmarshalDocument(data []byte) (*core.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrSerializationFailed)
	}
	d := &decoder{bs: data}
	doc := &core.Document{
		Id:          d.string(),
		Title:       d.string(),
		Category:    d.string(),
		Slug:        d.string(),
		Author:      d.string(),
		Description: d.string(),
		URL:         d.string(),
		PublishDate: d.time(),
		Tags:        d.strings(),
		Body:        d.string(),
		ContentHash: d.string(),
		IndexedAt:   d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return doc, nil
}

func encodeChunk(e *encoder, chunk *core.Chunk) {
	e.string(chunk.Id)
	e.string(chunk.DocumentId)
	e.int(chunk.Ordinal)
	e.int(chunk.StartToken)
	e.int(chunk.TokenCount)
	e.string(chunk.Text)
	e.string(chunk.ContentHash)
	e.string(chunk.Category)
	e.string(chunk.Slug)
	e.string(chunk.Title)
	e.strings(chunk.Tags)
	e.time(chunk.PublishDate)
	e.vector(chunk.Vector)
}

// MarshalChunk serializes a Chunk, including its vector, to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	return encode(func(e *encoder) { encodeChunk(e, chunk) })
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty chunk", ErrSerializationFailed)
	}
	d := &decoder{bs: data}
	chunk := &core.Chunk{
		Id:          d.string(),
		DocumentId:  d.string(),
		Ordinal:     d.int(),
		StartToken:  d.int(),
		TokenCount:  d.int(),
		Text:        d.string(),
		ContentHash: d.string(),
		Category:    d.string(),
		Slug:        d.string(),
		Title:       d.string(),
		Tags:        d.strings(),
		PublishDate: d.time(),
		Vector:      d.vector(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return chunk, nil
}

// MarshalEmbedding serializes an EmbeddingVector to bytes.
func MarshalEmbedding(v *core.EmbeddingVector) []byte {
	return encode(func(e *encoder) {
		e.string(v.ChunkId)
		e.string(v.ContentHash)
		e.string(v.Model)
		e.vector(v.Vector)
		e.time(v.GeneratedAt)
	})
}

// UnmarshalEmbedding deserializes an EmbeddingVector from bytes.
func UnmarshalEmbedding(data []byte) (*core.EmbeddingVector, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrSerializationFailed)
	}
	d := &decoder{bs: data}
	v := &core.EmbeddingVector{
		ChunkId:     d.string(),
		ContentHash: d.string(),
		Model:       d.string(),
		Vector:      d.vector(),
		GeneratedAt: d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalIndexMeta serializes IndexMeta to bytes.
func MarshalIndexMeta(meta *core.IndexMeta) []byte {
	return encode(func(e *encoder) {
		e.int(meta.Dimension)
		e.string(meta.EmbeddingModel)
		e.string(meta.LastOperation)
		e.time(meta.UpdatedAt)
	})
}

// UnmarshalIndexMeta deserializes IndexMeta from bytes.
func UnmarshalIndexMeta(data []byte) (*core.IndexMeta, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty index metadata", ErrSerializationFailed)
	}
	d := &decoder{bs: data}
	meta := &core.IndexMeta{
		Dimension:      d.int(),
		EmbeddingModel: d.string(),
		LastOperation:  d.string(),
		UpdatedAt:      d.time(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return meta, nil
}
