// This program performs administrative tasks against the store of a
// stopped node.
package main

import (
	"github.com/ardanlabs/chasenode/app/tooling/admin/commands"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {
	commands.Execute(build)
}
