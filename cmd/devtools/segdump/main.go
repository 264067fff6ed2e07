// segdump reads a message on stdin and prints its parsed segment view as
// JSON. Useful for eyeballing how the scanner splits real model output.
//
//	cat reply.md | go run ./cmd/devtools/segdump -post
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/luminachat/msgpipe/internal/postprocess"
	"github.com/luminachat/msgpipe/internal/segment"
)

func main() {
	applyPost := flag.Bool("post", false, "run the response post-processor before parsing")
	flag.Parse()

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read stdin: %v\n", err)
		os.Exit(1)
	}

	text := string(data)
	if *applyPost {
		text = postprocess.Apply(text)
	}

	parsed := segment.Parse(text)
	out, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
