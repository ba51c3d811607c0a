package lastword

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	reference "github.com/tyler-smith/go-bip39"
	"seedhammer.com/lastword/bip39"
)

const tossPrefix = "toss measure okay still kidney dad sleep tuna salt rib ritual"

func TestEnumerate(t *testing.T) {
	for _, prefix := range []string{
		tossPrefix,
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
		"zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo",
	} {
		words := strings.Fields(prefix)
		cands, err := Recover(words)
		if err != nil {
			t.Fatalf("%q: %v", prefix, err)
		}
		if len(cands) != NumCandidates {
			t.Fatalf("%q: %d candidates, want %d", prefix, len(cands), NumCandidates)
		}
		seen := make(map[bip39.Word]bool)
		for i, c := range cands {
			if c.Tail != i {
				t.Errorf("%q: candidate %d has tail %d", prefix, i, c.Tail)
			}
			if want := bip39.Word(c.Tail<<4 | c.Checksum); c.Word != want {
				t.Errorf("%q: tail %d: word %d, want %d", prefix, c.Tail, c.Word, want)
			}
			if seen[c.Word] {
				t.Errorf("%q: duplicate last word %q", prefix, c.Label())
			}
			seen[c.Word] = true
			if !c.Valid {
				t.Errorf("%q: tail %d not valid", prefix, c.Tail)
			}
			phrase := c.Phrase()
			if want := prefix + " " + c.Label(); phrase != want {
				t.Errorf("%q: tail %d: phrase %q, want %q", prefix, c.Tail, phrase, want)
			}
			if !reference.IsMnemonicValid(phrase) {
				t.Errorf("%q: reference implementation rejects %q", prefix, phrase)
			}
			ent, check := c.Mnemonic.Split()
			if int(check) != c.Checksum {
				t.Errorf("%q: tail %d: embedded checksum %d, constructed with %d", prefix, c.Tail, check, c.Checksum)
			}
			if got := int(ent[15] & 0x7f); got != c.Tail {
				t.Errorf("%q: tail %d: entropy ends in %07b", prefix, c.Tail, got)
			}
		}
	}
}

func TestKnownMnemonics(t *testing.T) {
	tests := []struct {
		mnemonic string
		tail     int
		index    bip39.Word
	}{
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", 0, 3},
		{"legal winner thank year wave sausage worth useful legal winner thank yellow", 127, 2040},
		{"letter advice cage absurd amount doctor acoustic avoid letter advice cage above", 0, 4},
		{"zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo zoo wrong", 127, 2037},
		{"ozone drill grab fiber curtain grace pudding thank cruise elder eight picnic", 82, 1313},
		{"scheme spot photo card baby mountain device kick cradle pact join borrow", 13, 208},
		{"cat swing flag economy stadium alone churn speed unique patch report train", 115, 1848},
		{"vessel ladder alter error federal sibling chat ability sun glass valve picture", 82, 1314},
	}
	for _, test := range tests {
		words := strings.Fields(test.mnemonic)
		last := words[len(words)-1]
		cands, err := Recover(words[:PrefixWords])
		if err != nil {
			t.Fatalf("%q: %v", test.mnemonic, err)
		}
		c := cands[test.tail]
		if c.Label() != last || c.Word != test.index {
			t.Errorf("%q: tail %d completes with %q (%d), want %q (%d)", test.mnemonic, test.tail, c.Label(), c.Word, last, test.index)
		}
		if c.Phrase() != test.mnemonic {
			t.Errorf("tail %d phrase %q, want %q", test.tail, c.Phrase(), test.mnemonic)
		}
		var matches []int
		for _, c := range cands {
			if c.Label() == last {
				matches = append(matches, c.Tail)
			}
		}
		if !reflect.DeepEqual(matches, []int{test.tail}) {
			t.Errorf("%q: last word found at tails %v", test.mnemonic, matches)
		}
	}
}

func TestTailBoundaries(t *testing.T) {
	m, err := Lookup(strings.Fields(tossPrefix))
	if err != nil {
		t.Fatal(err)
	}
	p, err := Pack(m)
	if err != nil {
		t.Fatal(err)
	}
	first := p.Entropy(0)
	last := p.Entropy(127)
	if got := fmt.Sprintf("%07b", first[15]&0x7f); got != "0000000" {
		t.Errorf("tail 0 encoded as %s", got)
	}
	if got := fmt.Sprintf("%07b", last[15]&0x7f); got != "1111111" {
		t.Errorf("tail 127 encoded as %s", got)
	}
	if first[15]&0x80 != last[15]&0x80 || string(first[:15]) != string(last[:15]) {
		t.Errorf("tail changed the prefix bits")
	}
}

func TestPack(t *testing.T) {
	// The prefix bits must agree with the reference decoder.
	for i := 0; i < 1000; i++ {
		m := make(bip39.Mnemonic, PrefixWords+1)
		for j := range m {
			m[j] = bip39.RandomWord()
		}
		want, _ := m.Split()
		p, err := Pack(m[:PrefixWords])
		if err != nil {
			t.Fatal(err)
		}
		tail := int(m[PrefixWords] >> 4)
		got := p.Entropy(tail)
		if string(got[:]) != string(want) {
			t.Fatalf("%v packed to %x, want %x", m, got, want)
		}
	}
}

func TestPackErrors(t *testing.T) {
	var countErr *WordCountError
	if _, err := Pack(make(bip39.Mnemonic, 12)); !errors.As(err, &countErr) || countErr.Count != 12 {
		t.Errorf("packing 12 words returned %v", err)
	}
	m := make(bip39.Mnemonic, PrefixWords)
	m[3] = bip39.NumWords
	var encErr *EncodingError
	if _, err := Pack(m); !errors.As(err, &encErr) || encErr.Pos != 3 || encErr.Index != bip39.NumWords {
		t.Errorf("packing out of range index returned %v", err)
	}
	m[3] = -1
	if _, err := Pack(m); !errors.As(err, &encErr) || encErr.Pos != 3 || encErr.Index != -1 {
		t.Errorf("packing negative index returned %v", err)
	}
	if _, err := Enumerate(Prefix{}); !errors.As(err, &countErr) || countErr.Count != 0 {
		t.Errorf("enumerating zero prefix returned %v", err)
	}
}

func TestWordCount(t *testing.T) {
	words := strings.Fields(tossPrefix)
	for _, n := range []int{0, 1, 10, 12, 24} {
		input := make([]string, n)
		for i := range input {
			input[i] = words[i%len(words)]
		}
		_, err := Recover(input)
		var countErr *WordCountError
		if !errors.As(err, &countErr) {
			t.Errorf("%d words: got error %v, want *WordCountError", n, err)
			continue
		}
		if countErr.Count != n {
			t.Errorf("%d words: reported count %d", n, countErr.Count)
		}
	}
}

func TestUnknownWord(t *testing.T) {
	tests := []struct {
		word string
		pos  int
	}{
		{"tosss", 0},
		{"Dad", 5},
		{"ritua", 10},
		{"", 4},
		{"über", 7},
	}
	for _, test := range tests {
		words := strings.Fields(tossPrefix)
		words[test.pos] = test.word
		_, err := Recover(words)
		var unknown *UnknownWordError
		if !errors.As(err, &unknown) {
			t.Errorf("%q: got error %v, want *UnknownWordError", test.word, err)
			continue
		}
		if unknown.Word != test.word || unknown.Pos != test.pos {
			t.Errorf("%q at %d: reported %q at %d", test.word, test.pos, unknown.Word, unknown.Pos)
		}
		if !strings.Contains(err.Error(), fmt.Sprintf("%q", test.word)) {
			t.Errorf("error %q does not name %q", err, test.word)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		phrase string
		valid  bool
	}{
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", true},
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon", false},
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", false},
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about", false},
		{"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abuot", false},
		{"legal winner thank year wave sausage worth useful legal winner thank yellow", true},
		{"", false},
	}
	for _, test := range tests {
		if got := Validate(test.phrase); got != test.valid {
			t.Errorf("Validate(%q) = %v, want %v", test.phrase, got, test.valid)
		}
	}
}

func TestValidateRandom(t *testing.T) {
	m := make(bip39.Mnemonic, PrefixWords+1)
	for i := 0; i < 1000; i++ {
		for j := range m {
			m[j] = bip39.RandomWord()
		}
		phrase := m.String()
		if got, want := Validate(phrase), reference.IsMnemonicValid(phrase); got != want {
			t.Errorf("Validate(%q) = %v, reference reports %v", phrase, got, want)
		}
	}
}

func TestAlteredPrefix(t *testing.T) {
	// Altering a word of a real mnemonic still completes to 128 valid
	// mnemonics, and the original last word can only reappear at the
	// tail encoded in its upper bits.
	for i := 0; i < 200; i++ {
		var ent [16]byte
		for j := range ent {
			ent[j] = byte(bip39.RandomWord())
		}
		m := bip39.New(ent[:])
		last := m[PrefixWords]
		prefix := m[:PrefixWords:PrefixWords]
		pos := i % PrefixWords
		prefix[pos] = (prefix[pos] + 1 + bip39.RandomWord()%(bip39.NumWords-1)) % bip39.NumWords
		p, err := Pack(prefix)
		if err != nil {
			t.Fatal(err)
		}
		cands, err := Enumerate(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(cands) != NumCandidates {
			t.Fatalf("%v: %d candidates, want %d", prefix, len(cands), NumCandidates)
		}
		for _, c := range cands {
			phrase := c.Phrase()
			if !c.Valid || !reference.IsMnemonicValid(phrase) {
				t.Errorf("%v: tail %d completes to invalid %q", prefix, c.Tail, phrase)
			}
			if c.Word == last && c.Tail != int(last>>checksumBits) {
				t.Errorf("%v: %q at tail %d, want tail %d", prefix, bip39.LabelFor(last), c.Tail, last>>checksumBits)
			}
		}
	}
}

func TestDeterminism(t *testing.T) {
	words := strings.Fields(tossPrefix)
	first, err := Recover(words)
	if err != nil {
		t.Fatal(err)
	}
	firstSel, _ := first.Select(nil)
	for i := 0; i < 3; i++ {
		again, err := Recover(words)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d produced different candidates", i)
		}
		sel, _ := again.Select(nil)
		if sel.Phrase() != firstSel.Phrase() {
			t.Errorf("run %d selected %q, first run %q", i, sel.Phrase(), firstSel.Phrase())
		}
	}
	if !strings.HasPrefix(firstSel.Phrase(), tossPrefix+" ") {
		t.Errorf("selected phrase %q does not extend the input", firstSel.Phrase())
	}
}

func TestSelect(t *testing.T) {
	cands, err := Recover(strings.Fields(tossPrefix))
	if err != nil {
		t.Fatal(err)
	}
	want := cands[42]
	got, err := cands.Select(func(c Candidate) (bool, error) {
		return c.Word == want.Word, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Tail != want.Tail {
		t.Errorf("selected tail %d, want %d", got.Tail, want.Tail)
	}

	_, err = cands.Select(func(c Candidate) (bool, error) { return false, nil })
	if !errors.Is(err, ErrNoCandidate) {
		t.Errorf("selecting nothing returned %v", err)
	}

	got, err = cands.Select(func(c Candidate) (bool, error) { return c.Tail%64 == 5, nil })
	var amb *AmbiguousError
	if !errors.As(err, &amb) {
		t.Fatalf("selecting two candidates returned %v", err)
	}
	if !reflect.DeepEqual(amb.Tails, []int{5, 69}) || got.Tail != 5 {
		t.Errorf("ambiguous selection returned tail %d, tails %v", got.Tail, amb.Tails)
	}

	got, err = cands.Select(nil)
	if !errors.As(err, &amb) || len(amb.Tails) != NumCandidates || got.Tail != 0 {
		t.Errorf("nil match returned tail %d, %v", got.Tail, err)
	}

	errMatch := errors.New("match failed")
	if _, err := cands.Select(func(c Candidate) (bool, error) { return false, errMatch }); !errors.Is(err, errMatch) {
		t.Errorf("match error not propagated: %v", err)
	}

	invalid := Candidates{{Tail: 3}}
	if _, err := invalid.Select(nil); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("selecting among invalid candidates returned %v", err)
	}
}
