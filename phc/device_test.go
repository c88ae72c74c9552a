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

package phc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// The ioctl request numbers encode the argument struct size, so a
// wrong field layout shows up here before it corrupts kernel memory.
func TestIoctlValues(t *testing.T) {
	require.Equal(t, uintptr(1216), unsafe.Sizeof(PTPSysOffsetExtended{}))
	require.Equal(t, uintptr(80), unsafe.Sizeof(PTPClockCaps{}))
	require.Equal(t, uintptr(0xc4c03d09), ioctlPTPSysOffsetExtended)
	require.Equal(t, uintptr(0x80503d01), ioctlPTPClockGetcaps)
}
