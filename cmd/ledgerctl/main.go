package main

import "github.com/dujiao-next/ledger/cmd/ledgerctl/cmd"

func main() {
	cmd.Execute()
}
