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

// Package clock steps and disciplines POSIX clocks through
// clock_adjtime(2). It accepts any clockid, including the dynamic ids
// derived from an open PHC device file descriptor, so the system clock
// and /dev/ptpN devices are driven through the same entry points:
// Step, AdjFreqPPB and FrequencyPPB.
package clock
