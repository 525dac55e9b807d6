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

//go:build linux
// +build linux

package measure

import (
	"os"
	"syscall"
	"time"
)

// fillPlatformStat adds the uid/gid and access/change times only available
// through the raw syscall.Stat_t, matching original_source's use of
// st_uid/st_gid/st_atime/st_ctime in pts_file_meas_create's metadata pass.
func fillPlatformStat(md *FileMetadata, info os.FileInfo) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	md.UID = stat.Uid
	md.GID = stat.Gid
	md.AccessTime = time.Unix(stat.Atim.Sec, stat.Atim.Nsec)
	md.ChangeTime = time.Unix(stat.Ctim.Sec, stat.Ctim.Nsec)
}
