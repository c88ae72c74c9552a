/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package hostendian reports the byte order of the machine the code
// runs on. The kernel hands packet timestamps over socket control
// messages in native order, so code assembling or parsing those
// structures byte-by-byte needs to know which order that is.
package hostendian

import (
	"encoding/binary"
	"unsafe"
)

// Order is the byte order of this machine.
var Order binary.ByteOrder = binary.LittleEndian

// IsBigEndian reports whether this machine is big endian.
var IsBigEndian bool

func init() {
	probe := uint16(0x0100)
	if *(*byte)(unsafe.Pointer(&probe)) == 0x01 {
		IsBigEndian = true
		Order = binary.BigEndian
	}
}
