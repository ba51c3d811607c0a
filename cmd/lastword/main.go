// Command lastword recovers the 12th word of a BIP39 mnemonic from
// the first 11. Every 7-bit tail completes the 11 words to a mnemonic
// with a valid checksum, so the wallet is singled out by -match with
// its master fingerprint, an extended public key, an account UR or an
// address.
//
// Usage:
//
//	lastword [flags] word1 ... word11
//	lastword [flags] "word1 ... word11"
//	lastword [flags] 00000000...
//	lastword [flags] < words.txt
//
// The words may also be given as the 44 SeedQR digits of the first
// 11 words. Without arguments the words are read from standard input,
// without echo if it is a terminal. Run it offline.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/kortschak/qr"
	"golang.org/x/term"
	"seedhammer.com/lastword/bc/ur"
	"seedhammer.com/lastword/bc/urtypes"
	"seedhammer.com/lastword/bip32"
	"seedhammer.com/lastword/lastword"
	"seedhammer.com/lastword/seedqr"
	"seedhammer.com/lastword/wallet"
)

type config struct {
	validOnly  bool
	all        bool
	match      string
	passphrase string
	gap        int
	network    *chaincfg.Params
	seedQR     bool
	qr         bool
	script     urtypes.Script
	path       urtypes.Path
}

func main() {
	err := run(os.Stdout, os.Stderr, os.Stdin, os.Args[1:])
	os.Exit(report(os.Stderr, err))
}

// usageError is a command line error already printed by the flag
// package.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// report prints err and returns the exit code for it.
func report(stderr io.Writer, err error) int {
	var usage *usageError
	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.As(err, &usage):
		return 2
	case errors.Is(err, lastword.ErrNoCandidate):
		fmt.Fprintln(stderr, "lastword: no valid completion found — check word order/spelling")
		return 1
	}
	msg := err.Error()
	if !strings.HasPrefix(msg, "lastword: ") {
		msg = "lastword: " + msg
	}
	fmt.Fprintln(stderr, msg)
	return 2
}

func parseFlags(stderr io.Writer, args []string) (*config, []string, error) {
	fs := flag.NewFlagSet("lastword", flag.ContinueOnError)
	fs.SetOutput(stderr)
	c := new(config)
	fs.BoolVar(&c.validOnly, "valid-only", false, "print only the selected 12th word and full mnemonic")
	fs.BoolVar(&c.all, "all", true, "print all 128 candidates before the selected word")
	fs.StringVar(&c.match, "match", "", "select the wallet with this master `fingerprint`, extended public key, ur:crypto-output, ur:crypto-hdkey or address")
	fs.StringVar(&c.passphrase, "passphrase", "", "BIP39 passphrase used by -match and -ur")
	fs.IntVar(&c.gap, "gap", 20, "number of receive and change addresses searched when matching an address")
	testnet := fs.Bool("testnet", false, "use testnet keys and addresses")
	fs.BoolVar(&c.seedQR, "seedqr", false, "print the SeedQR digits of the mnemonic")
	fs.BoolVar(&c.qr, "qr", false, "print the SeedQR of the mnemonic as a QR code")
	script := fs.String("ur", "", "print the account for `script` (p2pkh, p2sh-p2wpkh, p2wpkh, p2tr) as ur:crypto-output")
	path := fs.String("path", "", "derive the -ur account along `path` such as m/84h/0h/1h instead of the standard path")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: lastword [flags] word1 ... word11")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, nil, err
		}
		return nil, nil, &usageError{err}
	}
	c.network = &chaincfg.MainNetParams
	if *testnet {
		c.network = &chaincfg.TestNet3Params
	}
	if *script != "" {
		s, err := urtypes.ParseScript(*script)
		if err != nil {
			return nil, nil, err
		}
		c.script = s
	}
	if *path != "" {
		if c.script == urtypes.UnknownScript {
			return nil, nil, errors.New("-path requires -ur")
		}
		p, err := bip32.ParsePath(*path)
		if err != nil {
			return nil, nil, err
		}
		c.path = p
	}
	return c, fs.Args(), nil
}

func run(stdout, stderr io.Writer, stdin io.Reader, args []string) error {
	conf, args, err := parseFlags(stderr, args)
	if err != nil {
		return err
	}
	words, err := readWords(stderr, stdin, args)
	if err != nil {
		return err
	}
	if len(words) == 1 && seedqr.IsDigits(words[0]) {
		m, err := seedqr.Decode(words[0])
		if err != nil {
			return err
		}
		words = strings.Fields(m.String())
	}
	cands, err := lastword.Recover(words)
	if err != nil {
		return err
	}
	var match func(c lastword.Candidate) (bool, error)
	if conf.match != "" {
		hint, err := wallet.ParseHint(conf.match, conf.network, conf.gap)
		if err != nil {
			return err
		}
		match = func(c lastword.Candidate) (bool, error) {
			w, err := wallet.Open(c.Mnemonic, conf.passphrase, conf.network)
			if err != nil {
				return false, err
			}
			return hint.Match(w)
		}
	}
	sel, err := cands.Select(match)
	found := true
	var ambiguous *lastword.AmbiguousError
	switch {
	case errors.As(err, &ambiguous):
		fmt.Fprintf(stderr, "lastword: warning: %d candidates have a valid checksum, reporting tail %d; use -match to select your wallet\n",
			len(ambiguous.Tails), sel.Tail)
	case errors.Is(err, lastword.ErrNoCandidate):
		found = false
	case err != nil:
		return err
	}
	if conf.all && !conf.validOnly {
		listCandidates(stdout, cands, sel, found)
	}
	if !found {
		return lastword.ErrNoCandidate
	}
	fmt.Fprintf(stdout, "Valid 12th word: %s (tail=%d, index=%d)\n", sel.Label(), sel.Tail, sel.Word)
	fmt.Fprintf(stdout, "Full mnemonic: %s\n", sel.Phrase())
	if conf.seedQR {
		fmt.Fprintf(stdout, "SeedQR: %s\n", seedqr.QR(sel.Mnemonic))
	}
	if conf.qr {
		code, err := qr.Encode(string(seedqr.QR(sel.Mnemonic)), qr.M)
		if err != nil {
			return fmt.Errorf("lastword: qr: %w", err)
		}
		if err := printQR(stdout, code); err != nil {
			return fmt.Errorf("lastword: qr: %w", err)
		}
	}
	if conf.script != urtypes.UnknownScript {
		w, err := wallet.Open(sel.Mnemonic, conf.passphrase, conf.network)
		if err != nil {
			return err
		}
		var desc urtypes.OutputDescriptor
		if conf.path != nil {
			desc, err = w.AccountAt(conf.script, conf.path)
		} else {
			desc, err = w.Account(conf.script)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Master fingerprint: %.8x\n", w.Fingerprint)
		fmt.Fprintf(stdout, "Account: %s %s\n", desc.Key.DerivationPath, desc.Key)
		fmt.Fprintln(stdout, ur.Encode("crypto-output", desc.Encode()))
	}
	return nil
}

// readWords returns the words from args, a single quoted argument or
// stdin.
func readWords(stderr io.Writer, stdin io.Reader, args []string) ([]string, error) {
	switch len(args) {
	case 0:
	case 1:
		return strings.Fields(args[0]), nil
	default:
		return args, nil
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(stderr, "Enter the first %d words: ", lastword.PrefixWords)
		phrase, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return nil, fmt.Errorf("lastword: %w", err)
		}
		return strings.Fields(string(phrase)), nil
	}
	phrase, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("lastword: %w", err)
	}
	return strings.Fields(string(phrase)), nil
}

func listCandidates(stdout io.Writer, cands lastword.Candidates, sel lastword.Candidate, found bool) {
	for _, c := range cands {
		status := "invalid"
		if c.Valid {
			status = "valid"
		}
		if found && c.Tail == sel.Tail {
			status += " *"
		}
		fmt.Fprintf(stdout, "tail=%3d (%07b) index=%4d %-8s %s\n", c.Tail, c.Tail, c.Word, c.Label(), status)
	}
}

// printQR renders code with two characters per module and a quiet
// zone of 4 modules. Dark modules are blank, for dark terminals.
func printQR(w io.Writer, code *qr.Code) error {
	const quiet = 4
	var b strings.Builder
	for y := -quiet; y < code.Size+quiet; y++ {
		for x := -quiet; x < code.Size+quiet; x++ {
			black := x >= 0 && y >= 0 && x < code.Size && y < code.Size && code.Black(x, y)
			if black {
				b.WriteString("  ")
			} else {
				b.WriteString("██")
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
