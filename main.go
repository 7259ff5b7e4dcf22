// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/mesozoic/mesozoic/cmd/mesozoic"

func main() {
	cmd.Execute()
}
