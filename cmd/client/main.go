package main

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/andy6609/wired-chat/internal/client"
)

var (
	errorf  = color.New(color.FgRed).PrintfFunc()
	warnf   = color.New(color.FgYellow).PrintfFunc()
	statusf = color.New(color.FgGreen).PrintfFunc()
	ownf    = color.New(color.FgCyan).PrintfFunc()
	helpf   = color.New(color.FgBlue).PrintfFunc()
)

func main() {
	args, err := client.ParseArgs(os.Args[1:])
	if err != nil {
		if errors.Is(err, client.ErrUsage) {
			warnf("Usage: %s <IP> <PORT> <NAME>\n", filepath.Base(os.Args[0]))
		} else {
			errorf("Error: %v\n", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	c, err := client.Dial(dialCtx, args)
	cancel()
	if err != nil {
		errorf("Connection failed! %v\n", err)
		os.Exit(1)
	}

	code := run(ctx, c)
	_ = c.Close()
	stop()
	os.Exit(code)
}

func run(ctx context.Context, c *client.Client) int {
	history := client.NewHistory(client.DefaultHistorySize, client.MaxBuffer-1)
	input := readLines(os.Stdin)

	statusf("Connected as %s\n", c.Name())
	helpf("Enter: send message    /history: redraw messages    /quit: exit\n")

	for {
		select {
		case <-ctx.Done():
			return 0

		case msg, ok := <-c.Incoming():
			if !ok {
				if errors.Is(c.Err(), client.ErrServerFull) {
					errorf("Server is full!\n")
				} else {
					errorf("Connection closed! %v\n", c.Err())
				}
				return 1
			}
			history.Add(msg.Text)
			printMessage(msg.Text, false)

		case line, ok := <-input:
			if !ok {
				return 0
			}
			switch strings.TrimSpace(line) {
			case "/quit":
				return 0
			case "/history":
				redraw(history)
				continue
			}
			sent, err := c.Send(line)
			if err != nil {
				errorf("send error: %v\n", err)
				return 1
			}
			if sent != "" {
				history.Add(sent)
				printMessage(sent, true)
			}
		}
	}
}

func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, client.MaxBuffer), client.MaxBuffer*4)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}

func printMessage(text string, own bool) {
	text = strings.TrimRight(text, "\r\n")
	if own {
		ownf("> %s\n", text)
		return
	}
	statusf("%s\n", text)
}

func redraw(h *client.History) {
	helpf("%s\n", strings.Repeat("-", 40))
	for _, line := range h.Lines() {
		statusf("%s\n", strings.TrimRight(line, "\r\n"))
	}
	helpf("%s\n", strings.Repeat("-", 40))
}
