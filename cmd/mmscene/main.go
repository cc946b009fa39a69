// mmscene preprocesses indoor multimodal scans into cached splits and draws
// sphere samples from them.
//
// Usage:
//
//	mmscene preprocess --raw <dir> --cache <dir> [--images <dir>] [--config <file>] [--catalog <db>] [--metrics-out <file>]
//	mmscene sample --cache <dir> [--split train] [--n 4] [--seed 1] [--config <file>]
//	mmscene report --cache <dir> --out <dir> [--split train] [--config <file>]
//	mmscene catalog migrate --db <file>
//	mmscene catalog runs --db <file> [--limit 20] [--json]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
