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

package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// CurrentFormatVersion is bumped whenever the on-disk layout changes. Stores
// carrying any other version are treated as corrupt and rebuilt.
const CurrentFormatVersion uint32 = 1

// Manifest is the integrity record written into every store when it is created.
type Manifest struct {
	FormatVersion uint32
	SolutionPath  string
	CreatedAt     time.Time
}

// NewManifest returns a manifest for a store created now.
func NewManifest(solutionPath string) *Manifest {
	return &Manifest{
		FormatVersion: CurrentFormatVersion,
		SolutionPath:  solutionPath,
		CreatedAt:     time.Now().UTC(),
	}
}

// Blob is a stored value together with the checksum it was written with.
type Blob struct {
	Checksum Checksum
	Data     []byte
}

// ManifestMUS serializes Manifest values.
var ManifestMUS = manifestMUS{}

type manifestMUS struct{}

func (manifestMUS) Marshal(v Manifest, bs []byte) (n int) {
	n = varint.Uint32.Marshal(v.FormatVersion, bs)
	n += ord.String.Marshal(v.SolutionPath, bs[n:])
	n += varint.Int64.Marshal(v.CreatedAt.UnixMicro(), bs[n:])
	return
}

func (manifestMUS) Unmarshal(bs []byte) (v Manifest, n int, err error) {
	v.FormatVersion, n, err = varint.Uint32.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.SolutionPath, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt = time.UnixMicro(micros).UTC()
	return
}

func (manifestMUS) Size(v Manifest) (size int) {
	size = varint.Uint32.Size(v.FormatVersion)
	size += ord.String.Size(v.SolutionPath)
	return size + varint.Int64.Size(v.CreatedAt.UnixMicro())
}

// BlobMUS serializes Blob values.
var BlobMUS = blobMUS{}

type blobMUS struct{}

func (blobMUS) Marshal(v Blob, bs []byte) (n int) {
	n = ord.ByteSlice.Marshal(v.Checksum, bs)
	n += ord.ByteSlice.Marshal(v.Data, bs[n:])
	return
}

func (blobMUS) Unmarshal(bs []byte) (v Blob, n int, err error) {
	var checksum []byte
	checksum, n, err = ord.ByteSlice.Unmarshal(bs)
	if err != nil {
		return
	}
	v.Checksum = checksum
	var n1 int
	v.Data, n1, err = ord.ByteSlice.Unmarshal(bs[n:])
	n += n1
	return
}

func (blobMUS) Size(v Blob) (size int) {
	return ord.ByteSlice.Size(v.Checksum) + ord.ByteSlice.Size(v.Data)
}
