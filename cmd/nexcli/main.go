// Command nexcli is an interactive line-oriented client: it connects to a
// nexecho-style server, sends each line read from the terminal, and prints
// back whatever the server echoes.
package main

import (
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

const historyFile = ".nexcli_history"

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "server address")
	flag.Parse()

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "nexcli: dial:", err)
		os.Exit(1)
	}
	defer conn.Close()

	go func() {
		io.Copy(os.Stdout, conn)
	}()

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		io.Copy(conn, os.Stdin)
		return
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}

	prompt := fmt.Sprintf("%s> ", *addr)
	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				break
			}
			fmt.Fprintln(os.Stderr, "nexcli:", err)
			break
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)
		if _, err := fmt.Fprintln(conn, input); err != nil {
			fmt.Fprintln(os.Stderr, "nexcli: write:", err)
			break
		}
	}

	if f, err := os.Create(historyFile); err == nil {
		line.WriteHistory(f)
		f.Close()
	}
}
