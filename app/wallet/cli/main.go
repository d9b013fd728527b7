// This program signs transactions and submits them to a node.
package main

import "github.com/ardanlabs/chasenode/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
