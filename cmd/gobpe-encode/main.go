// Command gobpe-encode loads a saved vocabulary and encodes or decodes
// text through it. A thin driver over the tokenizer façade; spec.md §1
// places CLI entry points out of core scope, so this binary exists only
// to exercise the library end-to-end.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gobpe/tokenizer"
)

func main() {
	var (
		vocabPath = flag.String("vocab", "", "path to a vocabulary JSON file")
		decode    = flag.Bool("decode", false, "decode a space-separated list of token ids instead of encoding text")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s -vocab <path> [-decode] [text...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *vocabPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	tok, err := tokenizer.LoadFromFile(*vocabPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading %s: %v\n", *vocabPath, err)
		os.Exit(1)
	}
	defer tok.Close()

	if *decode {
		runDecode(tok, flag.Args())
		return
	}
	runEncode(tok, flag.Args())
}

func runEncode(tok *tokenizer.Tokenizer, args []string) {
	for _, line := range inputLines(args) {
		ids, err := tok.Encode(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encoding %q: %v\n", line, err)
			os.Exit(1)
		}
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		fmt.Println(strings.Join(parts, " "))
	}
}

func runDecode(tok *tokenizer.Tokenizer, args []string) {
	for _, line := range inputLines(args) {
		fields := strings.Fields(line)
		ids := make([]uint32, 0, len(fields))
		for _, f := range fields {
			n, err := strconv.ParseUint(f, 10, 32)
			if err != nil {
				fmt.Fprintf(os.Stderr, "parsing token id %q: %v\n", f, err)
				os.Exit(1)
			}
			ids = append(ids, uint32(n))
		}
		fmt.Println(string(tok.Decode(ids)))
	}
}

// inputLines returns args joined as one line if any were given, otherwise
// reads lines from stdin.
func inputLines(args []string) []string {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}
	}
	var lines []string
	sc := bufio.NewScanner(os.Stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil && err != io.EOF {
		fmt.Fprintf(os.Stderr, "reading stdin: %v\n", err)
		os.Exit(1)
	}
	return lines
}
