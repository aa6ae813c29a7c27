package main

import "github.com/cerc-io/airdrop-trie-service/cmd"

func main() {
	cmd.Execute()
}
