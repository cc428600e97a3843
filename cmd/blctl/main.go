// blctl signs and checks B/L documents and reads custody state from the ledger.
package main

import "github.com/information-sharing-networks/bl-custody/internal/cli"

func main() {
	cli.Execute()
}
