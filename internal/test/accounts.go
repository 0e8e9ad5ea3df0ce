package test

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/taurusgroup/confidential-ico/internal/hash"
)

// Account returns a deterministic address for name.
func Account(name string) common.Address {
	return common.BytesToAddress(hash.New("account", name).Sum())
}

// Accounts returns n distinct addresses named "a", "b", …
func Accounts(n int) []common.Address {
	baseString := ""
	out := make([]common.Address, n)
	for i := range out {
		if i%26 == 0 && i > 0 {
			baseString += "a"
		}
		out[i] = Account(fmt.Sprintf("%s%c", baseString, 'a'+rune(i%26)))
	}
	return out
}
