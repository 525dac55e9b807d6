// Copyright 2019 Google Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

//go:build !linux
// +build !linux

package measure

import "os"

// fillPlatformStat is a no-op off Linux: uid/gid/access/change times are not
// portably available through os.FileInfo alone.
func fillPlatformStat(md *FileMetadata, info os.FileInfo) {}
