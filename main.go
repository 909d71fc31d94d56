// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/invowk/modgate/cmd/modgate"

func main() {
	cmd.Execute()
}
