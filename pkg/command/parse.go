package command

import (
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokNumber
	tokKeyword
)

type token struct {
	kind tokenKind
	text string
	// glued reports that no separator sat between this token and the
	// previous one, i.e. both came from the same contiguous run.
	glued bool
}

func isThai(r rune) bool {
	return r >= 0x0E00 && r <= 0x0E7F
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// lex splits text into Thai-word, digit and keyword tokens. Any rune that is
// neither Thai script nor an ASCII digit acts as a separator. Keywords are
// split out of Thai runs so that glued forms like "สั่งข้าว3ถุง" tokenize.
func lex(text string) []token {
	var toks []token
	emit := func(kind tokenKind, s string, glued bool) {
		if s != "" {
			toks = append(toks, token{kind: kind, text: s, glued: glued})
		}
	}

	runes := []rune(text)
	i := 0
	for i < len(runes) {
		switch {
		case isDigit(runes[i]):
			j := i
			for j < len(runes) && isDigit(runes[j]) {
				j++
			}
			emit(tokNumber, string(runes[i:j]), i > 0 && isThai(runes[i-1]))
			i = j
		case isThai(runes[i]):
			j := i
			for j < len(runes) && isThai(runes[j]) {
				j++
			}
			lexThaiRun(string(runes[i:j]), i > 0 && isDigit(runes[i-1]), &toks)
			i = j
		default:
			i++
		}
	}
	return toks
}

// lexThaiRun splits a contiguous Thai run at keyword boundaries.
// The earliest keyword occurrence wins at each step, with the longer
// keyword preferred when both start at the same offset.
func lexThaiRun(run string, glued bool, toks *[]token) {
	for run != "" {
		kw, at := "", -1
		for _, k := range []string{kwDeliver, kwOrder} {
			if idx := strings.Index(run, k); idx >= 0 && (at < 0 || idx < at) {
				kw, at = k, idx
			}
		}
		if at < 0 {
			*toks = append(*toks, token{kind: tokWord, text: run, glued: glued})
			return
		}
		if at > 0 {
			*toks = append(*toks, token{kind: tokWord, text: run[:at], glued: glued})
			glued = true
		}
		*toks = append(*toks, token{kind: tokKeyword, text: kw, glued: glued || at > 0})
		run = run[at+len(kw):]
		glued = true
	}
}

// Parse matches text against the order grammar. On success every optional
// field of the returned Request holds either the matched value or its
// sentinel default. On mismatch it returns ErrNotUnderstood.
func Parse(text string) (Request, error) {
	toks := lex(text)

	// Mandatory order keyword; everything before it other than a
	// whitespace-separated customer name is ignored.
	at := -1
	for i, t := range toks {
		if t.kind == tokKeyword && t.text == kwOrder {
			at = i
			break
		}
	}
	if at < 0 {
		return Request{}, ErrNotUnderstood
	}

	req := Request{
		Customer:  DefaultCustomer,
		Unit:      DefaultUnit,
		Deliverer: DefaultDeliverer,
	}
	if at > 0 && !toks[at].glued && toks[at-1].kind == tokWord {
		req.Customer = toks[at-1].text
	}

	rest := toks[at+1:]

	// Mandatory item name.
	if len(rest) == 0 || rest[0].kind != tokWord {
		return Request{}, ErrNotUnderstood
	}
	req.Item = rest[0].text
	rest = rest[1:]

	// Mandatory positive quantity, digits only.
	if len(rest) == 0 || rest[0].kind != tokNumber {
		return Request{}, ErrNotUnderstood
	}
	qty, err := strconv.Atoi(rest[0].text)
	if err != nil || qty < 1 {
		return Request{}, ErrNotUnderstood
	}
	req.Quantity = qty
	rest = rest[1:]

	// Optional unit.
	if len(rest) > 0 && rest[0].kind == tokWord {
		req.Unit = rest[0].text
		rest = rest[1:]
	}

	// Optional delivery clause; a keyword with no following name leaves
	// the deliverer at its default. Trailing tokens are ignored.
	if len(rest) > 0 && rest[0].kind == tokKeyword && rest[0].text == kwDeliver {
		if len(rest) > 1 && rest[1].kind == tokWord {
			req.Deliverer = rest[1].text
		}
	}

	return req, nil
}
