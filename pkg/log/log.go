/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package log

import (
	"flag"
	"path/filepath"
	"strconv"

	"k8s.io/klog/v2"

	"github.com/Cloud-Pipelines/pipelines-backend/pkg/config"
)

// Init initializes klog from configuration. Logs go to a file under the
// configured directory (if any) and to stderr.
func Init(component string) error {
	klog.InitFlags(nil)
	if dir := config.GetLogDir(); len(dir) > 0 {
		flag.Set("log_file", filepath.Join(dir, component+".log"))
		flag.Set("logtostderr", "false")
		flag.Set("alsologtostderr", strconv.FormatBool(config.IsLogAlsoToStderr()))
		flag.Set("log_file_max_size", strconv.Itoa(config.GetLogFileMaxSizeMB()))
	}
	flag.Set("skip_log_headers", "true")
	if v := config.GetLogVerbosity(); v > 0 {
		flag.Set("v", strconv.Itoa(v))
	}
	flag.Parse()
	return nil
}
