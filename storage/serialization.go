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
	"time"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/safetyrag/core"
)

var (
	metadataMUS  = ord.NewMapSer[string, string](ord.String, ord.String)
	vectorMUS    = ord.NewSliceSer[float32](raw.Float32)
	responseMUS  = ord.NewMapSer[string, float64](ord.String, raw.Float64)
	documentMUS  = storedDocumentMUS{}
	standardsMUS = storedStandardsMUS{}
)

// storedDocument is the persisted form of a document.
// Seq fixes the document's position in its kind's insertion order.
type storedDocument struct {
	Seq uint64
	Doc core.Document
}

type storedDocumentMUS struct{}

var _ mus.Serializer[storedDocument] = storedDocumentMUS{}

func (storedDocumentMUS) Marshal(v storedDocument, bs []byte) (n int) {
	n = varint.Uint64.Marshal(v.Seq, bs)
	n += ord.String.Marshal(v.Doc.ID, bs[n:])
	n += ord.String.Marshal(string(v.Doc.Kind), bs[n:])
	n += ord.String.Marshal(v.Doc.Title, bs[n:])
	n += ord.String.Marshal(v.Doc.Body, bs[n:])
	return n + metadataMUS.Marshal(v.Doc.Metadata, bs[n:])
}

func (storedDocumentMUS) Unmarshal(bs []byte) (v storedDocument, n int, err error) {
	v.Seq, n, err = varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1   int
		kind string
	)
	for _, field := range []*string{&v.Doc.ID, &kind, &v.Doc.Title, &v.Doc.Body} {
		*field, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.Doc.Kind = core.Kind(kind)
	v.Doc.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if len(v.Doc.Metadata) == 0 {
		v.Doc.Metadata = nil
	}
	return
}

func (storedDocumentMUS) Size(v storedDocument) (size int) {
	size = varint.Uint64.Size(v.Seq)
	size += ord.String.Size(v.Doc.ID)
	size += ord.String.Size(string(v.Doc.Kind))
	size += ord.String.Size(v.Doc.Title)
	size += ord.String.Size(v.Doc.Body)
	return size + metadataMUS.Size(v.Doc.Metadata)
}

func (storedDocumentMUS) Skip(bs []byte) (n int, err error) {
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for range 4 {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	n1, err = metadataMUS.Skip(bs[n:])
	n += n1
	return
}

type storedStandardsMUS struct{}

var _ mus.Serializer[core.Standards] = storedStandardsMUS{}

func (storedStandardsMUS) Marshal(v core.Standards, bs []byte) (n int) {
	n = responseMUS.Marshal(v.AverageResponseMinutes, bs)
	return n + varint.Int64.Marshal(unixMicro(v.UpdatedAt), bs[n:])
}

func (storedStandardsMUS) Unmarshal(bs []byte) (v core.Standards, n int, err error) {
	v.AverageResponseMinutes, n, err = responseMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1     int
		micros int64
	)
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err == nil && micros != 0 {
		v.UpdatedAt = time.UnixMicro(micros).UTC()
	}
	return
}

func (storedStandardsMUS) Size(v core.Standards) (size int) {
	return responseMUS.Size(v.AverageResponseMinutes) + varint.Int64.Size(unixMicro(v.UpdatedAt))
}

func (storedStandardsMUS) Skip(bs []byte) (n int, err error) {
	n, err = responseMUS.Skip(bs)
	if err != nil {
		return
	}
	n1, err := varint.Int64.Skip(bs[n:])
	return n + n1, err
}

// unixMicro maps the zero time to 0 so unset timestamps survive a round trip.
func unixMicro(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// MarshalDocument serializes a document and its insertion sequence to bytes.
func MarshalDocument(doc *core.Document, seq uint64) []byte {
	v := storedDocument{Seq: seq, Doc: *doc}
	buf := make([]byte, documentMUS.Size(v))
	documentMUS.Marshal(v, buf)
	return buf
}

// UnmarshalDocument deserializes a document and its insertion sequence.
func UnmarshalDocument(data []byte) (*core.Document, uint64, error) {
	v, n, err := documentMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return nil, 0, err
	}
	return &v.Doc, v.Seq, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(v []float32) []byte {
	buf := make([]byte, vectorMUS.Size(v))
	vectorMUS.Marshal(v, buf)
	return buf
}

// UnmarshalVector deserializes a vector written by MarshalVector.
func UnmarshalVector(data []byte) ([]float32, error) {
	v, n, err := vectorMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return nil, err
	}
	return v, nil
}

// MarshalStandards serializes industry standards to bytes.
func MarshalStandards(s *core.Standards) []byte {
	buf := make([]byte, standardsMUS.Size(*s))
	standardsMUS.Marshal(*s, buf)
	return buf
}

// UnmarshalStandards deserializes industry standards.
func UnmarshalStandards(data []byte) (*core.Standards, error) {
	s, n, err := standardsMUS.Unmarshal(data)
	if err := checkDecoded(n, len(data), err); err != nil {
		return nil, err
	}
	return &s, nil
}

func checkDecoded(n, size int, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if n != size {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, size-n)
	}
	return nil
}
