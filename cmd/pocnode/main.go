// Pocnode runs the Proof of Cooperation consensus engine.
package main

import "github.com/icn-network/poc/internal/cli"

func main() {
	cli.Execute()
}
