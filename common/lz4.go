// Copyright 2022-2023
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Compress data with lz4
func Compress(in []byte) ([]byte, error) {
	var w bytes.Buffer
	zw := lz4.NewWriter(&w)
	if _, err := io.Copy(zw, bytes.NewReader(in)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decompress lz4 compressed data
func Decompress(in []byte) ([]byte, error) {
	var w bytes.Buffer
	zr := lz4.NewReader(bytes.NewReader(in))
	if _, err := io.Copy(&w, zr); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
