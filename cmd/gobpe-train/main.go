// Command gobpe-train trains a byte-level BPE vocabulary from one or more
// text files and writes the result as a vocabulary JSON file (spec.md §6).
// This is a thin driver over internal/trainer and the tokenizer façade;
// spec.md §1 places CLI entry points out of core scope, so this binary
// exists only to exercise the library end-to-end.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/gobpe/tokenizer"
	"github.com/gobpe/tokenizer/internal/tlog"
	"github.com/gobpe/tokenizer/internal/trainer"
)

func main() {
	var (
		vocabSize      = flag.Int("vocab-size", 2048, "target vocabulary size (including the 256 base bytes)")
		minFrequency   = flag.Int64("min-frequency", 0, "stop merging once the best pair's count falls below this")
		maxTokenLength = flag.Int("max-token-length", 0, "reject merges producing a token longer than this many bytes (0 = no cap)")
		workers        = flag.Int("workers", 0, "goroutines for parallel pair counting (0 = sequential)")
		out            = flag.String("out", "vocab.json", "output vocabulary JSON path")
		verbose        = flag.Bool("verbose", false, "log training progress to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <text-file> [text-file ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose {
		tlog.UseConsoleWriter()
	}

	texts := make([]string, 0, flag.NArg())
	for _, path := range flag.Args() {
		content, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
			os.Exit(1)
		}
		texts = append(texts, string(content))
	}

	opts := trainer.Options{
		MinFrequency:   *minFrequency,
		MaxTokenLength: *maxTokenLength,
		Workers:        *workers,
	}

	tok, err := tokenizer.Train(texts, *vocabSize, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training: %v\n", err)
		os.Exit(1)
	}
	defer tok.Close()

	if err := tok.SaveToFile(*out); err != nil {
		fmt.Fprintf(os.Stderr, "saving %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Printf("trained %d-token vocabulary, wrote %s\n", tok.Vocabulary().Len(), *out)
}
