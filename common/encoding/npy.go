// Copyright 2026 gorse Project Authors
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

package encoding

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/floodnet/datamaker/raster"
	"github.com/juju/errors"
	"github.com/sbinet/npyio"
)

const (
	npyMagic     = "\x93NUMPY"
	npyAlignment = 64
)

// LoadRaster reads a 2-D or 3-D array in NumPy .npy format. Elements are stored
// little-endian in the returned raster regardless of the byte order in the file.
func LoadRaster(r io.Reader) (*raster.Raster, error) {
	reader, err := npyio.NewReader(r)
	if err != nil {
		return nil, errors.Trace(err)
	}
	descr := reader.Header.Descr
	if descr.Fortran {
		return nil, errors.NotSupportedf("fortran order array")
	}
	var height, width, channels int
	switch len(descr.Shape) {
	case 2:
		height, width = descr.Shape[0], descr.Shape[1]
	case 3:
		height, width, channels = descr.Shape[0], descr.Shape[1], descr.Shape[2]
	default:
		return nil, errors.NotSupportedf("array of shape %v", descr.Shape)
	}
	if len(descr.Type) < 2 {
		return nil, errors.NotValidf("dtype %q", descr.Type)
	}
	switch descr.Type[1:] {
	case "b1":
		return readAs[bool](reader, height, width, channels)
	case "i1":
		return readAs[int8](reader, height, width, channels)
	case "u1":
		return readAs[uint8](reader, height, width, channels)
	case "i2":
		return readAs[int16](reader, height, width, channels)
	case "u2":
		return readAs[uint16](reader, height, width, channels)
	case "i4":
		return readAs[int32](reader, height, width, channels)
	case "u4":
		return readAs[uint32](reader, height, width, channels)
	case "i8":
		return readAs[int64](reader, height, width, channels)
	case "u8":
		return readAs[uint64](reader, height, width, channels)
	case "f4":
		return readAs[float32](reader, height, width, channels)
	case "f8":
		return readAs[float64](reader, height, width, channels)
	default:
		return nil, errors.NotSupportedf("dtype %q", descr.Type)
	}
}

func readAs[T raster.Number](reader *npyio.Reader, height, width, channels int) (*raster.Raster, error) {
	var values []T
	if err := reader.Read(&values); err != nil {
		return nil, errors.Trace(err)
	}
	return raster.FromSlice(height, width, channels, values)
}

// SaveRaster writes a raster in NumPy .npy format (version 1.0, C order).
func SaveRaster(w io.Writer, r *raster.Raster) error {
	dims := make([]string, 0, 3)
	for _, dim := range r.Shape() {
		dims = append(dims, fmt.Sprint(dim))
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", r.Dtype, strings.Join(dims, ", "))
	// magic (6) + version (2) + header length (2) + header + '\n' is aligned
	prefix := len(npyMagic) + 4
	if padding := (npyAlignment - (prefix+len(header)+1)%npyAlignment) % npyAlignment; padding > 0 {
		header += strings.Repeat(" ", padding)
	}
	header += "\n"
	if len(header) > 0xffff {
		return errors.NotSupportedf("npy header of %d bytes", len(header))
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(npyMagic); err != nil {
		return errors.Trace(err)
	}
	if _, err := bw.Write([]byte{1, 0}); err != nil {
		return errors.Trace(err)
	}
	if err := binary.Write(bw, binary.LittleEndian, uint16(len(header))); err != nil {
		return errors.Trace(err)
	}
	if _, err := bw.WriteString(header); err != nil {
		return errors.Trace(err)
	}
	if _, err := bw.Write(r.Data); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(bw.Flush())
}
