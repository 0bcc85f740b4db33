package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zzfab/respkit/protocol"
)

func main() {
	binary := flag.Bool("binary", false, "Accept bulk strings that are not valid UTF-8")
	maxDepth := flag.Int("max-depth", protocol.DefaultMaxDepth, "Maximum array nesting depth")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: respdump [-binary] [-max-depth N] [file]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Prints the offset, length and value of every RESP frame in file,")
		fmt.Fprintln(os.Stderr, "or standard input when no file is given.")
		fmt.Fprintln(os.Stderr, "")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(2)
	}

	in := io.Reader(os.Stdin)
	if flag.NArg() == 1 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "respdump:", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	d := &protocol.Decoder{
		Limits:      protocol.Limits{MaxDepth: *maxDepth},
		AllowBinary: *binary,
	}

	out := bufio.NewWriter(os.Stdout)
	err := dump(in, out, d)
	if ferr := out.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "respdump:", err)
		os.Exit(1)
	}
}

// dump decodes consecutive frames from r and writes one line per frame
func dump(r io.Reader, w io.Writer, d *protocol.Decoder) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	offset := 0
	for offset < len(data) {
		v, n, err := d.Decode(data[offset:])
		if err != nil {
			if protocol.IsIncomplete(err) {
				return fmt.Errorf("incomplete frame at offset %d: %w", offset, err)
			}
			return fmt.Errorf("frame at offset %d: %w", offset, err)
		}

		if _, err := fmt.Fprintf(w, "%d %d %s\n", offset, n, v); err != nil {
			return err
		}
		offset += n
	}

	return nil
}
