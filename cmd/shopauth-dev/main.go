// Command shopauth-dev is a developer toolbox for apps built on goShopAuth: it
// mints session tokens, signs webhook bodies and app proxy queries, and runs a
// local load test against the session store.
package main

import (
	"os"

	"github.com/MrEthical07/goShopAuth/cmd/shopauth-dev/app"
)

func main() {
	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
