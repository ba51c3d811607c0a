package bip39

import (
	"github.com/tyler-smith/go-bip39/wordlists"
)

// words is the BIP39 English wordlist in index order.
var words = wordlists.English

// index maps a word to its position in words.
var index map[string]Word

func init() {
	if len(words) != 1<<wordBits {
		panic("bip39: wordlist has the wrong size")
	}
	index = make(map[string]Word, len(words))
	for i, w := range words {
		index[w] = Word(i)
	}
	if len(index) != len(words) {
		panic("bip39: wordlist contains duplicates")
	}
}
