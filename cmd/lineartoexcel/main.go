/* Copyright (c) 2025 ZaphyrRobin
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"os"

	"github.com/ZaphyrRobin/linearToExcel/cmd/lineartoexcel/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
