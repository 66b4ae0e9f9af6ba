package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andy6609/joke-server/internal/joke"
)

func main() {
	port := flag.Int("port", joke.DefaultPort, "server port")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	in := bufio.NewScanner(os.Stdin)

	var c *joke.Client
	for c == nil {
		fmt.Println("Enter the server's IP address: ")
		if !in.Scan() {
			return
		}
		addr := net.JoinHostPort(strings.TrimSpace(in.Text()), strconv.Itoa(*port))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		var err error
		c, err = joke.Dial(ctx, addr)
		cancel()
		if err != nil {
			logger.Error("connect failed", "addr", addr, "error", err)
		}
	}
	defer c.Close()

	for {
		msg, err := c.ReadMessage()
		if err != nil {
			logger.Error("connection lost", "error", err)
			return
		}
		fmt.Println(msg)

		if !in.Scan() {
			return
		}
		line := in.Text()
		if strings.EqualFold(strings.TrimSpace(line), "N") {
			fmt.Println("Connection closing")
			return
		}
		if err := c.Send(line); err != nil {
			logger.Error("send failed", "error", err)
			return
		}
	}
}
